package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/ports"
)

// GiftRepo is the bun implementation of GiftRepository.
type GiftRepo struct {
	db *bun.DB
}

func NewGiftRepo(db *bun.DB) ports.GiftRepository {
	return &GiftRepo{db: db}
}

func (r *GiftRepo) Create(ctx context.Context, gift *core.Gift) error {
	if _, err := r.db.NewInsert().Model(gift).Exec(ctx); err != nil {
		return fmt.Errorf("insert gift: %w", core.ErrUnavailable)
	}
	return nil
}

func (r *GiftRepo) Get(ctx context.Context, id uuid.UUID) (*core.Gift, error) {
	var gift core.Gift
	err := r.db.NewSelect().Model(&gift).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrGiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select gift: %w", core.ErrUnavailable)
	}
	return &gift, nil
}

func (r *GiftRepo) GetByEscrowID(ctx context.Context, escrowID string) (*core.Gift, error) {
	var gift core.Gift
	err := r.db.NewSelect().Model(&gift).Where("escrow_id = ?", escrowID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrGiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select gift by escrow: %w", core.ErrUnavailable)
	}
	return &gift, nil
}

func (r *GiftRepo) ListBySender(ctx context.Context, senderID uuid.UUID, limit, offset int) ([]*core.Gift, error) {
	var gifts []*core.Gift
	err := r.db.NewSelect().Model(&gifts).
		Where("sender_id = ?", senderID).
		Order("created_at DESC").Limit(limit).Offset(offset).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list gifts by sender: %w", core.ErrUnavailable)
	}
	return gifts, nil
}

func (r *GiftRepo) ListByRecipient(ctx context.Context, address string, limit, offset int) ([]*core.Gift, error) {
	var gifts []*core.Gift
	err := r.db.NewSelect().Model(&gifts).
		Where("lower(recipient_address) = lower(?)", address).
		Order("created_at DESC").Limit(limit).Offset(offset).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list gifts by recipient: %w", core.ErrUnavailable)
	}
	return gifts, nil
}

// Update persists a gift's status transition. The WHERE status guard keeps the
// PENDING -> CLAIMED transition single-shot even across racing processes.
func (r *GiftRepo) Update(ctx context.Context, gift *core.Gift) error {
	res, err := r.db.NewUpdate().Model(gift).WherePK().
		Where("status = ?", core.GiftPending).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update gift: %w", core.ErrUnavailable)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return core.ErrGiftNotClaimable
	}
	return nil
}
