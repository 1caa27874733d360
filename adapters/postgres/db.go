// Package postgres implements the repository ports on PostgreSQL via bun.
package postgres

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/geogift/geogift/core"
)

// Connect opens a bun handle over pgdriver.
func Connect(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// CreateTables creates the schema if absent. chain_steps and chain_claims
// cascade-delete with their chain.
func CreateTables(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*core.User)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	if _, err := db.NewCreateIndex().Model((*core.User)(nil)).
		Index("idx_users_wallet").Unique().IfNotExists().Column("wallet_address").Exec(ctx); err != nil {
		return err
	}

	if _, err := db.NewCreateTable().Model((*core.Gift)(nil)).IfNotExists().
		ForeignKey(`("sender_id") REFERENCES "users" ("id")`).Exec(ctx); err != nil {
		return err
	}
	if _, err := db.NewCreateIndex().Model((*core.Gift)(nil)).
		Index("idx_gifts_escrow").Unique().IfNotExists().Column("escrow_id").Exec(ctx); err != nil {
		return err
	}
	if _, err := db.NewCreateIndex().Model((*core.Gift)(nil)).
		Index("idx_gifts_recipient").IfNotExists().Column("recipient_address").Exec(ctx); err != nil {
		return err
	}

	if _, err := db.NewCreateTable().Model((*core.GiftChain)(nil)).IfNotExists().
		ForeignKey(`("creator_id") REFERENCES "users" ("id")`).Exec(ctx); err != nil {
		return err
	}
	// Partial: external ids are assigned only after on-chain deployment, and
	// undeployed chains all carry the empty string.
	if _, err := db.NewCreateIndex().Model((*core.GiftChain)(nil)).
		Index("idx_chains_external").Unique().IfNotExists().Column("external_chain_id").
		Where("external_chain_id <> ''").Exec(ctx); err != nil {
		return err
	}

	if _, err := db.NewCreateTable().Model((*core.ChainStep)(nil)).IfNotExists().
		ForeignKey(`("chain_id") REFERENCES "gift_chains" ("id") ON DELETE CASCADE`).Exec(ctx); err != nil {
		return err
	}
	if _, err := db.NewCreateIndex().Model((*core.ChainStep)(nil)).
		Index("idx_steps_chain_index").Unique().IfNotExists().Column("chain_id", "step_index").Exec(ctx); err != nil {
		return err
	}

	if _, err := db.NewCreateTable().Model((*core.ChainClaim)(nil)).IfNotExists().
		ForeignKey(`("chain_id") REFERENCES "gift_chains" ("id") ON DELETE CASCADE`).Exec(ctx); err != nil {
		return err
	}
	if _, err := db.NewCreateIndex().Model((*core.ChainClaim)(nil)).
		Index("idx_claims_chain").IfNotExists().Column("chain_id").Exec(ctx); err != nil {
		return err
	}
	return nil
}
