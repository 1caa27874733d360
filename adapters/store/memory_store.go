package store

import (
	"context"
	"sync"
	"time"

	"github.com/geogift/geogift/ports"
)

type entry struct {
	value     string
	count     int64
	expiresAt time.Time
}

// MemoryStore is an in-process implementation of the Store port, intended for
// tests and single-node development.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

// SetNow overrides the clock, for expiry tests.
func (s *MemoryStore) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

var _ ports.Store = (*MemoryStore)(nil)

func (s *MemoryStore) live(key string) (entry, bool) {
	e, ok := s.data[key]
	if !ok {
		return entry{}, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.data, key)
		return entry{}, false
	}
	return e, true
}

func (s *MemoryStore) SetEx(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.live(key)
	delete(s.data, key)
	return ok, nil
}

// IncrEx starts the window TTL on the first increment only; the window is
// fixed, later hits never extend it.
func (s *MemoryStore) IncrEx(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _ := s.live(key)
	e.count++
	if e.count == 1 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.data[key] = e
	return e.count, nil
}
