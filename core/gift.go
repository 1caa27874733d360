package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// GiftStatus is the lifecycle state of a single-step gift. Transitions are
// monotonic: PENDING -> CLAIMED or PENDING -> EXPIRED, never back.
type GiftStatus string

const (
	GiftPending GiftStatus = "PENDING"
	GiftClaimed GiftStatus = "CLAIMED"
	GiftExpired GiftStatus = "EXPIRED"
)

// Gift is a single-step reward held by an external on-chain escrow. The
// backend records only the escrow reference; escrow logic lives on-chain.
type Gift struct {
	bun.BaseModel `bun:"table:gifts"`

	ID               uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	SenderID         uuid.UUID `bun:"sender_id,type:uuid,notnull" json:"sender_id"`
	RecipientAddress string    `bun:"recipient_address,notnull" json:"recipient_address"`
	EscrowID         string    `bun:"escrow_id,unique,notnull" json:"escrow_id"`

	Latitude  float64 `bun:"latitude,notnull" json:"latitude"`
	Longitude float64 `bun:"longitude,notnull" json:"longitude"`
	Radius    int     `bun:"radius,notnull" json:"radius"`

	Message string     `bun:"message" json:"message,omitempty"`
	Status  GiftStatus `bun:"status,notnull" json:"status"`

	UnlockType UnlockType `bun:"unlock_type,notnull" json:"unlock_type"`
	UnlockData UnlockData `bun:"unlock_data,type:jsonb" json:"unlock_data,omitempty"`

	// What is revealed alongside the funds on a successful claim.
	RewardContent     string `bun:"reward_content" json:"reward_content,omitempty"`
	RewardContentType string `bun:"reward_content_type" json:"reward_content_type,omitempty"`

	ExpiresAt time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	ClaimedAt *time.Time `bun:"claimed_at" json:"claimed_at,omitempty"`
	ClaimTx   string     `bun:"claim_tx" json:"claim_tx,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at" json:"updated_at"`
}

// Claimable rejects claims from anyone but the designated recipient and claims
// against non-PENDING or expired gifts. The status check makes the second
// claim attempt an idempotent rejection.
func (g *Gift) Claimable(claimer string, now time.Time) error {
	if !AddressesEqual(g.RecipientAddress, claimer) {
		return fmt.Errorf("claimer is not the recipient: %w", ErrGiftNotClaimable)
	}
	if g.Status != GiftPending {
		return fmt.Errorf("gift is %s: %w", g.Status, ErrGiftNotClaimable)
	}
	if now.After(g.ExpiresAt) {
		return fmt.Errorf("gift expired at %s: %w", g.ExpiresAt.Format(time.RFC3339), ErrGiftNotClaimable)
	}
	return nil
}

// MarkClaimed transitions PENDING -> CLAIMED exactly once.
func (g *Gift) MarkClaimed(txRef string, now time.Time) error {
	if g.Status != GiftPending {
		return fmt.Errorf("gift is %s: %w", g.Status, ErrGiftNotClaimable)
	}
	g.Status = GiftClaimed
	g.ClaimedAt = &now
	g.ClaimTx = txRef
	g.UpdatedAt = now
	return nil
}
