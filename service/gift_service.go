package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/internal/eth"
	"github.com/geogift/geogift/ports"
)

const (
	minGiftExpiryHours     = 1
	maxGiftExpiryHours     = 168
	defaultGiftExpiryHours = 24
	defaultGiftRadius      = 50
)

// CreateGiftInput is the creation payload for a single-step gift.
type CreateGiftInput struct {
	RecipientAddress string          `json:"recipient_address" binding:"required"`
	EscrowID         string          `json:"escrow_id" binding:"required"`
	Latitude         float64         `json:"latitude" binding:"required"`
	Longitude        float64         `json:"longitude" binding:"required"`
	Radius           int             `json:"radius"`
	Message          string          `json:"message"`
	UnlockType       core.UnlockType `json:"unlock_type" binding:"required"`
	Password         string          `json:"password,omitempty"`
	Question         string          `json:"question,omitempty"`
	Answer           string          `json:"answer,omitempty"`
	Hint             string          `json:"hint,omitempty"`
	ContentURL       string          `json:"content_url,omitempty"`

	RewardContent     string `json:"reward_content,omitempty"`
	RewardContentType string `json:"reward_content_type,omitempty"`

	ExpiryHours int `json:"expiry_hours"`
}

// ClaimGiftInput is a claim attempt against a gift.
type ClaimGiftInput struct {
	Latitude  *float64       `json:"latitude,omitempty"`
	Longitude *float64       `json:"longitude,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	TxRef     string         `json:"tx_ref,omitempty"`
}

// GiftService owns the single-step gift lifecycle.
type GiftService struct {
	gifts  ports.GiftRepository
	users  ports.UserRepository
	events ports.EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewGiftService creates the gift service.
func NewGiftService(gifts ports.GiftRepository, users ports.UserRepository, events ports.EventPublisher, log zerolog.Logger) *GiftService {
	return &GiftService{
		gifts:  gifts,
		users:  users,
		events: events,
		log:    log.With().Str("component", "gifts").Logger(),
		now:    time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (s *GiftService) SetNow(now func() time.Time) { s.now = now }

// Create validates and persists a new PENDING gift.
func (s *GiftService) Create(ctx context.Context, senderAddress string, in CreateGiftInput) (*core.Gift, error) {
	sender, err := eth.NormalizeAddress(senderAddress)
	if err != nil {
		return nil, err
	}
	recipient, err := eth.NormalizeAddress(in.RecipientAddress)
	if err != nil {
		return nil, err
	}
	if !in.UnlockType.Valid() {
		return nil, fmt.Errorf("unknown unlock type %q: %w", in.UnlockType, core.ErrUnlockFailed)
	}

	user, err := s.ensureUser(ctx, sender)
	if err != nil {
		return nil, err
	}

	expiryHours := in.ExpiryHours
	if expiryHours == 0 {
		expiryHours = defaultGiftExpiryHours
	}
	if expiryHours < minGiftExpiryHours || expiryHours > maxGiftExpiryHours {
		return nil, fmt.Errorf("expiry hours must be between %d and %d: %w", minGiftExpiryHours, maxGiftExpiryHours, core.ErrGiftNotClaimable)
	}

	radius := in.Radius
	if radius == 0 {
		radius = defaultGiftRadius
	}

	now := s.now()
	gift := &core.Gift{
		ID:                uuid.New(),
		SenderID:          user.ID,
		RecipientAddress:  recipient,
		EscrowID:          in.EscrowID,
		Latitude:          in.Latitude,
		Longitude:         in.Longitude,
		Radius:            radius,
		Message:           in.Message,
		Status:            core.GiftPending,
		UnlockType:        in.UnlockType,
		UnlockData:        buildGiftUnlockData(in),
		RewardContent:     in.RewardContent,
		RewardContentType: in.RewardContentType,
		ExpiresAt:         now.Add(time.Duration(expiryHours) * time.Hour),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.gifts.Create(ctx, gift); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("gift", gift.ID.String()).
		Str("escrow", gift.EscrowID).
		Str("recipient", recipient).
		Msg("created gift")
	return gift, nil
}

// Get loads a gift by id.
func (s *GiftService) Get(ctx context.Context, id uuid.UUID) (*core.Gift, error) {
	return s.gifts.Get(ctx, id)
}

// GetByEscrowID loads a gift by its on-chain escrow reference.
func (s *GiftService) GetByEscrowID(ctx context.Context, escrowID string) (*core.Gift, error) {
	return s.gifts.GetByEscrowID(ctx, escrowID)
}

// ListSent returns gifts created by the address, newest first.
func (s *GiftService) ListSent(ctx context.Context, address string, limit, offset int) ([]*core.Gift, error) {
	sender, err := eth.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByWallet(ctx, sender)
	if errors.Is(err, core.ErrUserNotFound) {
		return []*core.Gift{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.gifts.ListBySender(ctx, user.ID, limit, offset)
}

// ListReceived returns gifts destined for the address, newest first.
func (s *GiftService) ListReceived(ctx context.Context, address string, limit, offset int) ([]*core.Gift, error) {
	return s.gifts.ListByRecipient(ctx, address, limit, offset)
}

// Claim verifies the unlock attempt and transitions the gift to CLAIMED. A
// failed verification leaves the gift PENDING and claimable again.
func (s *GiftService) Claim(ctx context.Context, giftID uuid.UUID, claimerAddress string, in ClaimGiftInput) (*core.Gift, error) {
	claimer, err := eth.NormalizeAddress(claimerAddress)
	if err != nil {
		return nil, err
	}

	gift, err := s.gifts.Get(ctx, giftID)
	if err != nil {
		return nil, err
	}
	if err := gift.Claimable(claimer, s.now()); err != nil {
		return nil, err
	}

	attempt := core.ClaimAttempt{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Payload:   in.Payload,
	}
	if err := core.VerifyUnlock(gift.UnlockType, gift.Latitude, gift.Longitude, gift.Radius, gift.UnlockData, attempt); err != nil {
		s.log.Info().
			Str("gift", gift.ID.String()).
			Str("claimer", claimer).
			Err(err).
			Msg("unlock verification failed")
		return nil, err
	}

	if err := gift.MarkClaimed(in.TxRef, s.now()); err != nil {
		return nil, err
	}
	if err := s.gifts.Update(ctx, gift); err != nil {
		return nil, err
	}

	if err := s.events.PublishGiftClaimed(ctx, gift); err != nil {
		s.log.Warn().Str("gift", gift.ID.String()).Err(err).Msg("gift claimed event failed")
	}

	s.log.Info().
		Str("gift", gift.ID.String()).
		Str("claimer", claimer).
		Msg("gift claimed")
	return gift, nil
}

// Expire marks an expired PENDING gift EXPIRED. Only the sender may reclaim,
// and only once the deadline has passed.
func (s *GiftService) Expire(ctx context.Context, giftID uuid.UUID, callerAddress string) (*core.Gift, error) {
	caller, err := eth.NormalizeAddress(callerAddress)
	if err != nil {
		return nil, err
	}

	gift, err := s.gifts.Get(ctx, giftID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByWallet(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("caller does not own gift: %w", core.ErrGiftNotFound)
	}
	if gift.SenderID != user.ID {
		return nil, fmt.Errorf("caller does not own gift: %w", core.ErrGiftNotFound)
	}

	now := s.now()
	if gift.Status != core.GiftPending {
		return nil, fmt.Errorf("gift is %s: %w", gift.Status, core.ErrGiftNotClaimable)
	}
	if now.Before(gift.ExpiresAt) {
		return nil, fmt.Errorf("gift does not expire until %s: %w", gift.ExpiresAt.Format(time.RFC3339), core.ErrGiftNotClaimable)
	}

	gift.Status = core.GiftExpired
	gift.UpdatedAt = now
	if err := s.gifts.Update(ctx, gift); err != nil {
		return nil, err
	}

	s.log.Info().Str("gift", gift.ID.String()).Msg("gift expired")
	return gift, nil
}

func (s *GiftService) ensureUser(ctx context.Context, address string) (*core.User, error) {
	user, err := s.users.GetByWallet(ctx, address)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, core.ErrUserNotFound) {
		return nil, err
	}
	user = core.NewUser(address, s.now())
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func buildGiftUnlockData(in CreateGiftInput) core.UnlockData {
	data := core.UnlockData{}
	switch in.UnlockType {
	case core.UnlockPassword:
		if in.Password != "" {
			data["password_hash"] = core.HashSecret(in.Password)
		}
		if in.Hint != "" {
			data["hint"] = in.Hint
		}
	case core.UnlockQuiz:
		if in.Question != "" {
			data["question"] = in.Question
		}
		if in.Answer != "" {
			data["answer_hash"] = core.HashSecret(core.NormalizeAnswer(in.Answer))
		}
		if in.Hint != "" {
			data["hints"] = []string{in.Hint}
		}
	case core.UnlockVideo, core.UnlockImage, core.UnlockURL:
		if in.ContentURL != "" {
			data["url"] = in.ContentURL
		}
	}
	return data
}
