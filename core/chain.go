package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ChainStatus is computed lazily from the chain's flags and expiry against the
// wall clock at read time; there is no background sweep.
type ChainStatus string

const (
	ChainActive    ChainStatus = "ACTIVE"
	ChainCompleted ChainStatus = "COMPLETED"
	ChainExpired   ChainStatus = "EXPIRED"
	ChainCancelled ChainStatus = "CANCELLED"
)

const (
	// MinChainSteps and MaxChainSteps bound the step count at creation.
	MinChainSteps = 2
	MaxChainSteps = 10
)

// GiftChain is a multi-step ordered reward. Steps unlock strictly in order:
// only the step at CurrentStep may complete, and completion advances the
// pointer. Invariants: 0 <= CurrentStep <= TotalSteps; IsCompleted iff
// CurrentStep == TotalSteps; IsCompleted and IsExpired never revert.
type GiftChain struct {
	bun.BaseModel `bun:"table:gift_chains"`

	ID               uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ExternalChainID  string    `bun:"external_chain_id" json:"external_chain_id,omitempty"`
	CreatorID        uuid.UUID `bun:"creator_id,type:uuid,notnull" json:"creator_id"`
	GiverAddress     string    `bun:"giver_address,notnull" json:"giver_address"`
	RecipientAddress string    `bun:"recipient_address,notnull" json:"recipient_address"`
	RecipientEmail   string    `bun:"recipient_email" json:"recipient_email,omitempty"`

	Title       string `bun:"title,notnull" json:"title"`
	Description string `bun:"description" json:"description,omitempty"`

	TotalValue  string `bun:"total_value,notnull" json:"total_value"`
	TotalSteps  int    `bun:"total_steps,notnull" json:"total_steps"`
	CurrentStep int    `bun:"current_step,notnull" json:"current_step"`

	IsCompleted bool      `bun:"is_completed,notnull" json:"is_completed"`
	IsExpired   bool      `bun:"is_expired,notnull" json:"is_expired"`
	IsCancelled bool      `bun:"is_cancelled,notnull" json:"is_cancelled"`
	ExpiresAt   time.Time `bun:"expires_at,notnull" json:"expires_at"`

	CreationTx string `bun:"creation_tx" json:"creation_tx,omitempty"`

	Steps []*ChainStep `bun:"rel:has-many,join:id=chain_id" json:"steps,omitempty"`

	CreatedAt   time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
}

// ChainStep belongs to exactly one chain and is cascade-deleted with it.
type ChainStep struct {
	bun.BaseModel `bun:"table:chain_steps"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	ChainID   uuid.UUID `bun:"chain_id,type:uuid,notnull" json:"chain_id"`
	StepIndex int       `bun:"step_index,notnull" json:"step_index"`

	Title   string `bun:"title,notnull" json:"title"`
	Message string `bun:"message" json:"message,omitempty"`

	UnlockType UnlockType `bun:"unlock_type,notnull" json:"unlock_type"`
	UnlockData UnlockData `bun:"unlock_data,type:jsonb" json:"unlock_data,omitempty"`

	// GPS target, used only for GPS unlocks.
	Latitude  float64 `bun:"latitude" json:"latitude,omitempty"`
	Longitude float64 `bun:"longitude" json:"longitude,omitempty"`
	Radius    int     `bun:"radius" json:"radius,omitempty"`

	RewardAmount string `bun:"reward_amount,notnull" json:"reward_amount"`

	IsCompleted bool       `bun:"is_completed,notnull" json:"is_completed"`
	CompletedAt *time.Time `bun:"completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// ValidateSteps checks the creation-time step invariants: between MinChainSteps
// and MaxChainSteps entries whose indices form exactly 0..N-1 in order, each
// with a known unlock type, and reward amounts that are valid decimals summing
// to totalValue.
func ValidateSteps(steps []*ChainStep, totalValue string) error {
	if len(steps) < MinChainSteps {
		return fmt.Errorf("chain needs at least %d steps, got %d: %w", MinChainSteps, len(steps), ErrInvalidStepSequence)
	}
	if len(steps) > MaxChainSteps {
		return fmt.Errorf("chain allows at most %d steps, got %d: %w", MaxChainSteps, len(steps), ErrInvalidStepSequence)
	}

	total, err := decimal.NewFromString(totalValue)
	if err != nil || total.Sign() <= 0 {
		return fmt.Errorf("invalid total value %q: %w", totalValue, ErrInvalidStepSequence)
	}

	sum := decimal.Zero
	for i, step := range steps {
		if step.StepIndex != i {
			return fmt.Errorf("step %d has index %d: %w", i, step.StepIndex, ErrInvalidStepSequence)
		}
		if !step.UnlockType.Valid() {
			return fmt.Errorf("step %d has unknown unlock type %q: %w", i, step.UnlockType, ErrInvalidStepSequence)
		}
		amount, err := decimal.NewFromString(step.RewardAmount)
		if err != nil || amount.Sign() < 0 {
			return fmt.Errorf("step %d has invalid reward %q: %w", i, step.RewardAmount, ErrInvalidStepSequence)
		}
		sum = sum.Add(amount)
	}

	if !sum.Equal(total) {
		return fmt.Errorf("step rewards sum to %s, chain value is %s: %w", sum, total, ErrInvalidStepSequence)
	}
	return nil
}

// Status derives the chain's state from its flags and expiry at the given
// instant. Completion wins over expiry: a chain finished before its deadline
// stays COMPLETED forever.
func (c *GiftChain) Status(now time.Time) ChainStatus {
	switch {
	case c.IsCancelled:
		return ChainCancelled
	case c.IsCompleted:
		return ChainCompleted
	case c.IsExpired || now.After(c.ExpiresAt):
		return ChainExpired
	default:
		return ChainActive
	}
}

// StepAt returns the loaded step with the given index, or nil.
func (c *GiftChain) StepAt(index int) *ChainStep {
	for _, s := range c.Steps {
		if s.StepIndex == index {
			return s
		}
	}
	return nil
}

// CompleteStep advances the chain when, and only when, stepIndex is the
// current step of an ACTIVE chain. On the final step it transitions the chain
// to COMPLETED and stamps the completion time. Any other index is rejected
// with ErrStepOutOfOrder and mutates nothing.
func (c *GiftChain) CompleteStep(stepIndex int, now time.Time) error {
	if status := c.Status(now); status != ChainActive {
		return fmt.Errorf("chain is %s: %w", status, ErrChainNotActive)
	}
	if stepIndex != c.CurrentStep {
		return fmt.Errorf("expected step %d, got %d: %w", c.CurrentStep, stepIndex, ErrStepOutOfOrder)
	}

	if step := c.StepAt(stepIndex); step != nil {
		step.IsCompleted = true
		ts := now
		step.CompletedAt = &ts
	}

	c.CurrentStep++
	c.UpdatedAt = now
	if c.CurrentStep == c.TotalSteps {
		c.IsCompleted = true
		ts := now
		c.CompletedAt = &ts
	}
	return nil
}
