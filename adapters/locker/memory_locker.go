package locker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/geogift/geogift/ports"
)

// MemoryLocker implements ChainLocker with in-process mutexes, for tests and
// single-node development.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewMemoryLocker() ports.ChainLocker {
	return &MemoryLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *MemoryLocker) Lock(_ context.Context, chainID uuid.UUID) (func() error, error) {
	l.mu.Lock()
	m, ok := l.locks[chainID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[chainID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return func() error {
		m.Unlock()
		return nil
	}, nil
}
