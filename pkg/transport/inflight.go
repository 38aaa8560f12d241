package transport

import (
	"context"
	"sync"
)

// Tracker holds the cancel functions of submissions whose HTTP request is
// still open. Cancelling one that waits for a worker slot makes it give up;
// one that is already running is detached from its request and finishes on
// its own deadline.
type Tracker struct {
	mu     sync.Mutex
	next   uint64
	active map[uint64]context.CancelFunc
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[uint64]context.CancelFunc)}
}

// Track derives a cancellable context from ctx. The returned done function
// must be called when the submission finishes; it releases the context too.
func (t *Tracker) Track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.next++
	key := t.next
	t.active[key] = cancel
	t.mu.Unlock()

	return ctx, func() {
		t.mu.Lock()
		delete(t.active, key)
		t.mu.Unlock()
		cancel()
	}
}

// CancelAll cancels every tracked submission and reports how many there were.
func (t *Tracker) CancelAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.active)
	for key, cancel := range t.active {
		cancel()
		delete(t.active, key)
	}
	return n
}

// Len reports the number of tracked submissions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
