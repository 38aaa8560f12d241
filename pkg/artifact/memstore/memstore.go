// Package memstore provides an in-memory artifact store for tests and
// single-process deployments. Artifacts are lost when the process restarts.
// Optional LRU eviction bounds memory use; evicted artifacts read back as
// not found.
package memstore

import (
	"container/list"
	"context"
	"sync"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/artifact"
)

type key struct {
	kind api.ArtifactKind
	id   string
}

// entry holds stored bytes and their LRU position.
type entry struct {
	data    []byte
	lruElem *list.Element
}

// Store is an in-memory artifact store with optional LRU eviction.
type Store struct {
	mu      sync.Mutex
	entries map[key]*entry
	lruList *list.List // front = most recently used
	maxSize int        // 0 = unlimited
}

// Ensure Store implements artifact.Store at compile time.
var _ artifact.Store = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the least recently used artifact is
// evicted when the limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[key]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// Put stores a copy of data.
func (s *Store) Put(_ context.Context, kind api.ArtifactKind, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{kind, id}
	if e, ok := s.entries[k]; ok {
		e.data = append([]byte(nil), data...)
		s.lruList.MoveToFront(e.lruElem)
		return nil
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	s.entries[k] = &entry{
		data:    append([]byte(nil), data...),
		lruElem: s.lruList.PushFront(k),
	}
	return nil
}

// Get returns a copy of the stored bytes.
func (s *Store) Get(_ context.Context, kind api.ArtifactKind, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key{kind, id}]
	if !ok {
		return nil, artifact.ErrNotFound
	}
	s.lruList.MoveToFront(e.lruElem)
	return append([]byte(nil), e.data...), nil
}

// Len returns the number of stored artifacts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// evictOldest removes the least recently used entry.
// Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}
	s.lruList.Remove(back)
	delete(s.entries, back.Value.(key))
}
