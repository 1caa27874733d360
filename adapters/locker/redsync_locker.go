// Package locker provides per-chain mutual exclusion.
package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/ports"
)

// lockExpiry bounds how long a crashed holder can block a chain.
const lockExpiry = 10 * time.Second

// RedsyncLocker implements ChainLocker with Redis-backed distributed mutexes,
// serializing claim processing per chain across instances.
type RedsyncLocker struct {
	rs *redsync.Redsync
}

func NewRedsyncLocker(rs *redsync.Redsync) ports.ChainLocker {
	return &RedsyncLocker{rs: rs}
}

func (l *RedsyncLocker) Lock(ctx context.Context, chainID uuid.UUID) (func() error, error) {
	mutex := l.rs.NewMutex("geogift:chain:lock:"+chainID.String(), redsync.WithExpiry(lockExpiry))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire chain lock: %w", core.ErrUnavailable)
	}
	return func() error {
		_, err := mutex.UnlockContext(context.WithoutCancel(ctx))
		return err
	}, nil
}
