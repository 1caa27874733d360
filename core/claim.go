package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ChainClaim is an append-only audit record of one claim attempt against one
// (chain, step). Every attempt persists, successful or not, and rows are never
// mutated afterwards.
type ChainClaim struct {
	bun.BaseModel `bun:"table:chain_claims"`

	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ChainID        uuid.UUID `bun:"chain_id,type:uuid,notnull" json:"chain_id"`
	StepIndex      int       `bun:"step_index,notnull" json:"step_index"`
	ClaimerAddress string    `bun:"claimer_address,notnull" json:"claimer_address"`

	Latitude  *float64       `bun:"latitude" json:"latitude,omitempty"`
	Longitude *float64       `bun:"longitude" json:"longitude,omitempty"`
	Payload   map[string]any `bun:"payload,type:jsonb" json:"payload,omitempty"`

	TxRef         string `bun:"tx_ref" json:"tx_ref,omitempty"`
	WasSuccessful bool   `bun:"was_successful,notnull" json:"was_successful"`
	ErrorMessage  string `bun:"error_message" json:"error_message,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}
