package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/ports"
)

const (
	TopicGiftClaimed    = "geogift.gift.claimed"
	TopicStepCompleted  = "geogift.chain.step_completed"
	TopicChainCompleted = "geogift.chain.completed"
)

// GiftClaimedEvent notifies that a single-step gift was claimed.
type GiftClaimedEvent struct {
	GiftID           string    `json:"gift_id"`
	EscrowID         string    `json:"escrow_id"`
	RecipientAddress string    `json:"recipient_address"`
	ClaimedAt        time.Time `json:"claimed_at"`
}

// StepCompletedEvent notifies that a chain step unlocked.
type StepCompletedEvent struct {
	ChainID          string `json:"chain_id"`
	ChainTitle       string `json:"chain_title"`
	RecipientAddress string `json:"recipient_address"`
	RecipientEmail   string `json:"recipient_email,omitempty"`
	StepIndex        int    `json:"step_index"`
	StepTitle        string `json:"step_title"`
	TotalSteps       int    `json:"total_steps"`
}

// ChainCompletedEvent notifies that the final step of a chain unlocked.
type ChainCompletedEvent struct {
	ChainID          string    `json:"chain_id"`
	ChainTitle       string    `json:"chain_title"`
	GiverAddress     string    `json:"giver_address"`
	RecipientAddress string    `json:"recipient_address"`
	RecipientEmail   string    `json:"recipient_email,omitempty"`
	TotalValue       string    `json:"total_value"`
	CompletedAt      time.Time `json:"completed_at"`
}

// WatermillPublisher implements the EventPublisher port using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a Watermill-backed publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *WatermillPublisher) PublishGiftClaimed(_ context.Context, gift *core.Gift) error {
	claimedAt := time.Now()
	if gift.ClaimedAt != nil {
		claimedAt = *gift.ClaimedAt
	}
	return p.publish(TopicGiftClaimed, GiftClaimedEvent{
		GiftID:           gift.ID.String(),
		EscrowID:         gift.EscrowID,
		RecipientAddress: gift.RecipientAddress,
		ClaimedAt:        claimedAt,
	})
}

func (p *WatermillPublisher) PublishStepCompleted(_ context.Context, chain *core.GiftChain, step *core.ChainStep) error {
	return p.publish(TopicStepCompleted, StepCompletedEvent{
		ChainID:          chain.ID.String(),
		ChainTitle:       chain.Title,
		RecipientAddress: chain.RecipientAddress,
		RecipientEmail:   chain.RecipientEmail,
		StepIndex:        step.StepIndex,
		StepTitle:        step.Title,
		TotalSteps:       chain.TotalSteps,
	})
}

func (p *WatermillPublisher) PublishChainCompleted(_ context.Context, chain *core.GiftChain) error {
	completedAt := time.Now()
	if chain.CompletedAt != nil {
		completedAt = *chain.CompletedAt
	}
	return p.publish(TopicChainCompleted, ChainCompletedEvent{
		ChainID:          chain.ID.String(),
		ChainTitle:       chain.Title,
		GiverAddress:     chain.GiverAddress,
		RecipientAddress: chain.RecipientAddress,
		RecipientEmail:   chain.RecipientEmail,
		TotalValue:       chain.TotalValue,
		CompletedAt:      completedAt,
	})
}
