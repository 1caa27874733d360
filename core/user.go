package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is a persistent identity keyed by checksummed wallet address. Users are
// created lazily on first successful authentication.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	WalletAddress string    `bun:"wallet_address,unique,notnull" json:"wallet_address"`

	DisplayName        string `bun:"display_name" json:"display_name"`
	Bio                string `bun:"bio" json:"bio"`
	FavoriteLocation   string `bun:"favorite_location" json:"favorite_location"`
	ProfilePublic      bool   `bun:"profile_public" json:"profile_public"`
	Email              string `bun:"email" json:"email,omitempty"`
	EmailNotifications bool   `bun:"email_notifications" json:"email_notifications"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at" json:"updated_at"`
}

// NewUser builds a fresh user for the given checksummed address.
func NewUser(address string, now time.Time) *User {
	return &User{
		ID:            uuid.New(),
		WalletAddress: address,
		ProfilePublic: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
