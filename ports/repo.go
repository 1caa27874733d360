package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/geogift/geogift/core"
)

// UserRepository persists wallet identities.
type UserRepository interface {
	GetByWallet(ctx context.Context, address string) (*core.User, error)
	Create(ctx context.Context, user *core.User) error
	Update(ctx context.Context, user *core.User) error
}

// GiftRepository persists single-step gifts.
type GiftRepository interface {
	Create(ctx context.Context, gift *core.Gift) error
	Get(ctx context.Context, id uuid.UUID) (*core.Gift, error)
	GetByEscrowID(ctx context.Context, escrowID string) (*core.Gift, error)
	ListBySender(ctx context.Context, senderID uuid.UUID, limit, offset int) ([]*core.Gift, error)
	ListByRecipient(ctx context.Context, address string, limit, offset int) ([]*core.Gift, error)
	Update(ctx context.Context, gift *core.Gift) error
}

// ChainRepository persists chains with their steps.
type ChainRepository interface {
	// CreateWithSteps inserts the chain and its steps in one transaction.
	CreateWithSteps(ctx context.Context, chain *core.GiftChain) error

	// Get loads a chain with steps.
	Get(ctx context.Context, id uuid.UUID) (*core.GiftChain, error)

	// GetByExternalID loads a chain by its on-chain identifier, with steps.
	GetByExternalID(ctx context.Context, externalID string) (*core.GiftChain, error)

	ListByGiver(ctx context.Context, address string, limit, offset int) ([]*core.GiftChain, error)
	ListByRecipient(ctx context.Context, address string, limit, offset int) ([]*core.GiftChain, error)

	// Update persists mutable chain metadata (blockchain refs, cancellation).
	Update(ctx context.Context, chain *core.GiftChain) error

	// AdvanceStep runs the read-modify-write of the chain's step completion
	// under row-level isolation: it must serialize concurrent callers on the
	// same chain so that exactly one advances CurrentStep. Rejections surface
	// as core.ErrStepOutOfOrder or core.ErrChainNotActive.
	AdvanceStep(ctx context.Context, chainID uuid.UUID, stepIndex int, now time.Time) (*core.GiftChain, error)

	Stats(ctx context.Context) (*core.ChainStats, error)
}

// ClaimRepository appends and reads the immutable claim audit log.
type ClaimRepository interface {
	Create(ctx context.Context, claim *core.ChainClaim) error
	ListByChain(ctx context.Context, chainID uuid.UUID, limit, offset int) ([]*core.ChainClaim, error)
	ListByClaimer(ctx context.Context, address string, limit, offset int) ([]*core.ChainClaim, error)
}
