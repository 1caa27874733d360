package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/ports"
)

// ClaimRepo is the bun implementation of ClaimRepository. Claims are
// append-only; there is no update path.
type ClaimRepo struct {
	db *bun.DB
}

func NewClaimRepo(db *bun.DB) ports.ClaimRepository {
	return &ClaimRepo{db: db}
}

func (r *ClaimRepo) Create(ctx context.Context, claim *core.ChainClaim) error {
	if _, err := r.db.NewInsert().Model(claim).Exec(ctx); err != nil {
		return fmt.Errorf("insert claim: %w", core.ErrUnavailable)
	}
	return nil
}

func (r *ClaimRepo) ListByChain(ctx context.Context, chainID uuid.UUID, limit, offset int) ([]*core.ChainClaim, error) {
	var claims []*core.ChainClaim
	err := r.db.NewSelect().Model(&claims).
		Where("chain_id = ?", chainID).
		Order("created_at DESC").Limit(limit).Offset(offset).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims by chain: %w", core.ErrUnavailable)
	}
	return claims, nil
}

func (r *ClaimRepo) ListByClaimer(ctx context.Context, address string, limit, offset int) ([]*core.ChainClaim, error) {
	var claims []*core.ChainClaim
	err := r.db.NewSelect().Model(&claims).
		Where("lower(claimer_address) = lower(?)", address).
		Order("created_at DESC").Limit(limit).Offset(offset).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims by claimer: %w", core.ErrUnavailable)
	}
	return claims, nil
}
