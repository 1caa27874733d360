package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/ports"
)

// ChainRepo is the bun implementation of ChainRepository.
type ChainRepo struct {
	db *bun.DB
}

func NewChainRepo(db *bun.DB) ports.ChainRepository {
	return &ChainRepo{db: db}
}

func (r *ChainRepo) CreateWithSteps(ctx context.Context, chain *core.GiftChain) error {
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(chain).Exec(ctx); err != nil {
			return err
		}
		if len(chain.Steps) > 0 {
			if _, err := tx.NewInsert().Model(&chain.Steps).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert chain: %w", core.ErrUnavailable)
	}
	return nil
}

func (r *ChainRepo) Get(ctx context.Context, id uuid.UUID) (*core.GiftChain, error) {
	var chain core.GiftChain
	err := r.db.NewSelect().Model(&chain).
		Relation("Steps", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("step_index ASC")
		}).
		Where("gc.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrChainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select chain: %w", core.ErrUnavailable)
	}
	return &chain, nil
}

func (r *ChainRepo) GetByExternalID(ctx context.Context, externalID string) (*core.GiftChain, error) {
	var chain core.GiftChain
	err := r.db.NewSelect().Model(&chain).
		Relation("Steps", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("step_index ASC")
		}).
		Where("gc.external_chain_id = ?", externalID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrChainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select chain by external id: %w", core.ErrUnavailable)
	}
	return &chain, nil
}

func (r *ChainRepo) ListByGiver(ctx context.Context, address string, limit, offset int) ([]*core.GiftChain, error) {
	return r.list(ctx, "lower(giver_address) = lower(?)", address, limit, offset)
}

func (r *ChainRepo) ListByRecipient(ctx context.Context, address string, limit, offset int) ([]*core.GiftChain, error) {
	return r.list(ctx, "lower(recipient_address) = lower(?)", address, limit, offset)
}

func (r *ChainRepo) list(ctx context.Context, where, address string, limit, offset int) ([]*core.GiftChain, error) {
	var chains []*core.GiftChain
	err := r.db.NewSelect().Model(&chains).
		Where(where, address).
		Order("created_at DESC").Limit(limit).Offset(offset).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", core.ErrUnavailable)
	}
	return chains, nil
}

func (r *ChainRepo) Update(ctx context.Context, chain *core.GiftChain) error {
	if _, err := r.db.NewUpdate().Model(chain).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("update chain: %w", core.ErrUnavailable)
	}
	return nil
}

// AdvanceStep serializes the read-modify-write of the chain's progress with a
// row lock. The loser of a race re-reads the advanced pointer and gets
// core.ErrStepOutOfOrder from the aggregate, with nothing written.
func (r *ChainRepo) AdvanceStep(ctx context.Context, chainID uuid.UUID, stepIndex int, now time.Time) (*core.GiftChain, error) {
	var chain core.GiftChain
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(&chain).Where("gc.id = ?", chainID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrChainNotFound
		}
		if err != nil {
			return fmt.Errorf("lock chain: %w", core.ErrUnavailable)
		}

		var steps []*core.ChainStep
		if err := tx.NewSelect().Model(&steps).
			Where("chain_id = ?", chainID).Order("step_index ASC").Scan(ctx); err != nil {
			return fmt.Errorf("load steps: %w", core.ErrUnavailable)
		}
		chain.Steps = steps

		if err := chain.CompleteStep(stepIndex, now); err != nil {
			return err
		}

		if step := chain.StepAt(stepIndex); step != nil {
			if _, err := tx.NewUpdate().Model(step).
				Column("is_completed", "completed_at").WherePK().Exec(ctx); err != nil {
				return fmt.Errorf("update step: %w", core.ErrUnavailable)
			}
		}

		if _, err := tx.NewUpdate().Model(&chain).
			Column("current_step", "is_completed", "completed_at", "updated_at").
			WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update chain progress: %w", core.ErrUnavailable)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &chain, nil
}

func (r *ChainRepo) Stats(ctx context.Context) (*core.ChainStats, error) {
	stats := &core.ChainStats{TotalValueLocked: "0"}

	total, err := r.db.NewSelect().Model((*core.GiftChain)(nil)).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chains: %w", core.ErrUnavailable)
	}
	stats.TotalChains = total

	completed, err := r.db.NewSelect().Model((*core.GiftChain)(nil)).
		Where("is_completed").Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count completed chains: %w", core.ErrUnavailable)
	}
	stats.CompletedChains = completed

	active, err := r.db.NewSelect().Model((*core.GiftChain)(nil)).
		Where("NOT is_completed").Where("NOT is_expired").Where("NOT is_cancelled").
		Where("expires_at > now()").Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active chains: %w", core.ErrUnavailable)
	}
	stats.ActiveChains = active

	var locked sql.NullString
	err = r.db.NewRaw(
		`SELECT COALESCE(SUM(total_value::numeric), 0)::text FROM gift_chains WHERE NOT is_completed`,
	).Scan(ctx, &locked)
	if err != nil {
		return nil, fmt.Errorf("sum locked value: %w", core.ErrUnavailable)
	}
	if locked.Valid {
		stats.TotalValueLocked = locked.String
	}

	claims, err := r.db.NewSelect().Model((*core.ChainClaim)(nil)).Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count claims: %w", core.ErrUnavailable)
	}
	stats.TotalClaims = claims

	successful, err := r.db.NewSelect().Model((*core.ChainClaim)(nil)).
		Where("was_successful").Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count successful claims: %w", core.ErrUnavailable)
	}
	stats.SuccessfulClaims = successful

	if stats.TotalChains > 0 {
		stats.CompletionRate = float64(stats.CompletedChains) / float64(stats.TotalChains) * 100
	}
	return stats, nil
}
