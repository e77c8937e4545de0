package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rotisserie/eris"
)

// DefaultMaxEntries bounds the in-memory store when no size is configured.
const DefaultMaxEntries = 64

// MemoryStore keeps entries in a size-bounded LRU.
type MemoryStore struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, Entry]
}

// NewMemoryStore creates a MemoryStore holding at most maxEntries results.
func NewMemoryStore(maxEntries int) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	lru, err := simplelru.NewLRU[string, Entry](maxEntries, nil)
	if err != nil {
		return nil, eris.Wrap(err, "cache: create lru")
	}
	return &MemoryStore{lru: lru}, nil
}

// Get returns the entry for key, or nil.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lru.Get(key)
	if !ok {
		return nil, nil
	}
	e.Payload = append([]byte(nil), e.Payload...)
	return &e, nil
}

// Put stores e, evicting the least recently used entry when full.
func (s *MemoryStore) Put(_ context.Context, e Entry) error {
	e.Payload = append([]byte(nil), e.Payload...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Add(e.Key, e)
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Remove(key)
	return nil
}

// DeleteStale removes label/region entries other than keep.
func (s *MemoryStore) DeleteStale(_ context.Context, label, region, keep string) (int, error) {
	return s.removeWhere(func(e Entry) bool {
		return e.Label == label && e.Region == region && e.Key != keep
	}), nil
}

// DeleteLabel removes every entry for label.
func (s *MemoryStore) DeleteLabel(_ context.Context, label string) (int, error) {
	return s.removeWhere(func(e Entry) bool { return e.Label == label }), nil
}

// Purge removes entries expired at now.
func (s *MemoryStore) Purge(_ context.Context, now time.Time) (int, error) {
	return s.removeWhere(func(e Entry) bool { return e.Expired(now) }), nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len(), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) removeWhere(match func(Entry) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, k := range s.lru.Keys() {
		e, ok := s.lru.Peek(k)
		if ok && match(e) {
			s.lru.Remove(k)
			n++
		}
	}
	return n
}
