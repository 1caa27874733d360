package ports

import (
	"context"

	"github.com/google/uuid"
)

// ChainLocker scopes mutual exclusion to a single chain across instances.
type ChainLocker interface {
	// Lock acquires the lock for chainID and returns its release func.
	Lock(ctx context.Context, chainID uuid.UUID) (unlock func() error, err error)
}
