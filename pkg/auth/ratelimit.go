package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter checks whether a request should be allowed based on
// the identity's service tier.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// InProcessLimiter keeps one token bucket per subject in memory. A subject
// may burst up to its per-minute allowance and then refills evenly.
type InProcessLimiter struct {
	tiers      map[string]int // tier -> requests per minute
	defaultRPM int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

// NewInProcessLimiter creates a limiter with per-tier requests-per-minute
// overrides. Tiers without an entry use defaultRPM; a value <= 0 means
// unlimited.
func NewInProcessLimiter(tiers map[string]int, defaultRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		limiters:   make(map[string]*rate.Limiter),
		now:        time.Now,
	}
}

// Allow reports ErrTooManyRequests once the subject's bucket is empty.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	tier := identity.Tier()
	rpm := l.defaultRPM
	if v, ok := l.tiers[tier]; ok {
		rpm = v
	}
	if rpm <= 0 {
		return nil
	}

	key := identity.Subject + ":" + tier

	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	if !lim.AllowN(l.now(), 1) {
		return ErrTooManyRequests
	}
	return nil
}
