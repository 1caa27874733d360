package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/ports"
)

// UserRepo is the bun implementation of UserRepository.
type UserRepo struct {
	db *bun.DB
}

func NewUserRepo(db *bun.DB) ports.UserRepository {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByWallet(ctx context.Context, address string) (*core.User, error) {
	var user core.User
	err := r.db.NewSelect().Model(&user).Where("lower(wallet_address) = lower(?)", address).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", core.ErrUnavailable)
	}
	return &user, nil
}

func (r *UserRepo) Create(ctx context.Context, user *core.User) error {
	if _, err := r.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", core.ErrUnavailable)
	}
	return nil
}

func (r *UserRepo) Update(ctx context.Context, user *core.User) error {
	if _, err := r.db.NewUpdate().Model(user).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("update user: %w", core.ErrUnavailable)
	}
	return nil
}
