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
	minExpiryDays = 1
	maxExpiryDays = 365
)

// StepInput describes one step at chain creation. Password and quiz secrets
// arrive in plaintext and are hashed before storage.
type StepInput struct {
	StepIndex    int             `json:"step_index"`
	Title        string          `json:"title" binding:"required"`
	Message      string          `json:"message"`
	UnlockType   core.UnlockType `json:"unlock_type" binding:"required"`
	Password     string          `json:"password,omitempty"`
	Question     string          `json:"question,omitempty"`
	Answer       string          `json:"answer,omitempty"`
	Hint         string          `json:"hint,omitempty"`
	ContentURL   string          `json:"content_url,omitempty"`
	Content      string          `json:"content,omitempty"`
	Latitude     float64         `json:"latitude,omitempty"`
	Longitude    float64         `json:"longitude,omitempty"`
	Radius       int             `json:"radius,omitempty"`
	RewardAmount string          `json:"reward_amount" binding:"required"`
}

// CreateChainInput is the creation payload for a gift chain.
type CreateChainInput struct {
	Title            string      `json:"title" binding:"required"`
	Description      string      `json:"description"`
	RecipientAddress string      `json:"recipient_address" binding:"required"`
	RecipientEmail   string      `json:"recipient_email"`
	TotalValue       string      `json:"total_value" binding:"required"`
	ExpiryDays       int         `json:"expiry_days" binding:"required"`
	ExternalChainID  string      `json:"external_chain_id"`
	CreationTx       string      `json:"creation_tx"`
	Steps            []StepInput `json:"steps" binding:"required"`
}

// RecordClaimInput is one claim attempt against a chain step. WasSuccessful
// reflects the outcome of the unlock verification performed by the caller
// (client plus on-chain settlement); the backend records it either way.
type RecordClaimInput struct {
	StepIndex      int            `json:"step_index"`
	ClaimerAddress string         `json:"claimer_address" binding:"required"`
	Latitude       *float64       `json:"latitude,omitempty"`
	Longitude      *float64       `json:"longitude,omitempty"`
	Payload        map[string]any `json:"payload,omitempty"`
	TxRef          string         `json:"tx_ref,omitempty"`
	WasSuccessful  bool           `json:"was_successful"`
	ErrorMessage   string         `json:"error_message,omitempty"`
}

// ChainService owns chain creation, progression, and the claim audit log.
type ChainService struct {
	chains ports.ChainRepository
	claims ports.ClaimRepository
	users  ports.UserRepository
	locker ports.ChainLocker
	events ports.EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewChainService creates the chain service.
func NewChainService(
	chains ports.ChainRepository,
	claims ports.ClaimRepository,
	users ports.UserRepository,
	locker ports.ChainLocker,
	events ports.EventPublisher,
	log zerolog.Logger,
) *ChainService {
	return &ChainService{
		chains: chains,
		claims: claims,
		users:  users,
		locker: locker,
		events: events,
		log:    log.With().Str("component", "chains").Logger(),
		now:    time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (s *ChainService) SetNow(now func() time.Time) { s.now = now }

// Create validates and persists a chain with its steps. Step indices must form
// exactly 0..N-1, 2 <= N <= 10, and step rewards must sum to the total value.
func (s *ChainService) Create(ctx context.Context, giverAddress string, in CreateChainInput) (*core.GiftChain, error) {
	giver, err := eth.NormalizeAddress(giverAddress)
	if err != nil {
		return nil, err
	}
	recipient, err := eth.NormalizeAddress(in.RecipientAddress)
	if err != nil {
		return nil, err
	}
	if in.ExpiryDays < minExpiryDays || in.ExpiryDays > maxExpiryDays {
		return nil, fmt.Errorf("expiry days must be between %d and %d: %w", minExpiryDays, maxExpiryDays, core.ErrInvalidStepSequence)
	}

	creator, err := s.ensureUser(ctx, giver)
	if err != nil {
		return nil, err
	}

	now := s.now()
	chainID := uuid.New()

	steps := make([]*core.ChainStep, 0, len(in.Steps))
	for _, stepIn := range in.Steps {
		steps = append(steps, buildStep(chainID, stepIn, now))
	}
	if err := core.ValidateSteps(steps, in.TotalValue); err != nil {
		return nil, err
	}

	chain := &core.GiftChain{
		ID:               chainID,
		ExternalChainID:  in.ExternalChainID,
		CreatorID:        creator.ID,
		GiverAddress:     giver,
		RecipientAddress: recipient,
		RecipientEmail:   in.RecipientEmail,
		Title:            in.Title,
		Description:      in.Description,
		TotalValue:       in.TotalValue,
		TotalSteps:       len(steps),
		CurrentStep:      0,
		ExpiresAt:        now.Add(time.Duration(in.ExpiryDays) * 24 * time.Hour),
		CreationTx:       in.CreationTx,
		Steps:            steps,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.chains.CreateWithSteps(ctx, chain); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("chain", chain.ID.String()).
		Str("giver", giver).
		Str("recipient", recipient).
		Int("steps", chain.TotalSteps).
		Msg("created gift chain")
	return chain, nil
}

// Get loads a chain with its steps.
func (s *ChainService) Get(ctx context.Context, id uuid.UUID) (*core.GiftChain, error) {
	return s.chains.Get(ctx, id)
}

// GetByExternalID loads a chain by its on-chain identifier.
func (s *ChainService) GetByExternalID(ctx context.Context, externalID string) (*core.GiftChain, error) {
	return s.chains.GetByExternalID(ctx, externalID)
}

// ListByGiver returns chains created by the address, newest first.
func (s *ChainService) ListByGiver(ctx context.Context, address string, limit, offset int) ([]*core.GiftChain, error) {
	return s.chains.ListByGiver(ctx, address, limit, offset)
}

// ListByRecipient returns chains destined for the address, newest first.
func (s *ChainService) ListByRecipient(ctx context.Context, address string, limit, offset int) ([]*core.GiftChain, error) {
	return s.chains.ListByRecipient(ctx, address, limit, offset)
}

// UpdateBlockchainRef records the on-chain identifier and creation transaction
// after contract deployment. Only the chain's giver may update it.
func (s *ChainService) UpdateBlockchainRef(ctx context.Context, chainID uuid.UUID, caller, externalID, txRef string) (*core.GiftChain, error) {
	chain, err := s.chains.Get(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if !core.AddressesEqual(chain.GiverAddress, caller) {
		return nil, fmt.Errorf("caller does not own chain: %w", core.ErrChainNotFound)
	}
	chain.ExternalChainID = externalID
	chain.CreationTx = txRef
	chain.UpdatedAt = s.now()
	if err := s.chains.Update(ctx, chain); err != nil {
		return nil, err
	}
	return chain, nil
}

// Cancel marks an active chain cancelled. Only the giver may cancel, and a
// completed or expired chain stays what it is.
func (s *ChainService) Cancel(ctx context.Context, chainID uuid.UUID, caller string) (*core.GiftChain, error) {
	chain, err := s.chains.Get(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if !core.AddressesEqual(chain.GiverAddress, caller) {
		return nil, fmt.Errorf("caller does not own chain: %w", core.ErrChainNotFound)
	}
	if status := chain.Status(s.now()); status != core.ChainActive {
		return nil, fmt.Errorf("chain is %s: %w", status, core.ErrChainNotActive)
	}
	chain.IsCancelled = true
	chain.UpdatedAt = s.now()
	if err := s.chains.Update(ctx, chain); err != nil {
		return nil, err
	}
	s.log.Info().Str("chain", chain.ID.String()).Msg("chain cancelled")
	return chain, nil
}

// RecordClaim persists the claim attempt first, always, then — for successful
// claims — advances the chain under the per-chain lock. A state-machine
// rejection (wrong step, inactive chain) is returned alongside the persisted
// claim so callers can tell "recorded but not applied" from success.
func (s *ChainService) RecordClaim(ctx context.Context, chainID uuid.UUID, in RecordClaimInput) (*core.ChainClaim, bool, error) {
	chain, err := s.chains.Get(ctx, chainID)
	if err != nil {
		return nil, false, err
	}

	claimer, err := eth.NormalizeAddress(in.ClaimerAddress)
	if err != nil {
		return nil, false, err
	}

	claim := &core.ChainClaim{
		ID:             uuid.New(),
		ChainID:        chain.ID,
		StepIndex:      in.StepIndex,
		ClaimerAddress: claimer,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Payload:        in.Payload,
		TxRef:          in.TxRef,
		WasSuccessful:  in.WasSuccessful,
		ErrorMessage:   in.ErrorMessage,
		CreatedAt:      s.now(),
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, false, err
	}

	if !in.WasSuccessful {
		return claim, false, nil
	}

	unlock, err := s.locker.Lock(ctx, chain.ID)
	if err != nil {
		return claim, false, err
	}
	defer func() {
		if err := unlock(); err != nil {
			s.log.Warn().Str("chain", chain.ID.String()).Err(err).Msg("chain lock release failed")
		}
	}()

	advanced, err := s.chains.AdvanceStep(ctx, chain.ID, in.StepIndex, s.now())
	if err != nil {
		s.log.Warn().
			Str("chain", chain.ID.String()).
			Int("step", in.StepIndex).
			Err(err).
			Msg("claim recorded but step completion rejected")
		return claim, false, err
	}

	s.notifyProgress(ctx, advanced, in.StepIndex)
	return claim, true, nil
}

// ListClaims returns the audit log for a chain, newest first.
func (s *ChainService) ListClaims(ctx context.Context, chainID uuid.UUID, limit, offset int) ([]*core.ChainClaim, error) {
	if _, err := s.chains.Get(ctx, chainID); err != nil {
		return nil, err
	}
	return s.claims.ListByChain(ctx, chainID, limit, offset)
}

// ListClaimsByClaimer returns all attempts by one wallet, newest first.
func (s *ChainService) ListClaimsByClaimer(ctx context.Context, address string, limit, offset int) ([]*core.ChainClaim, error) {
	return s.claims.ListByClaimer(ctx, address, limit, offset)
}

// Stats returns the dashboard aggregate.
func (s *ChainService) Stats(ctx context.Context) (*core.ChainStats, error) {
	return s.chains.Stats(ctx)
}

// notifyProgress emits step/chain completion events. Failures are logged and
// swallowed; notifications never roll back a claim.
func (s *ChainService) notifyProgress(ctx context.Context, chain *core.GiftChain, stepIndex int) {
	step := chain.StepAt(stepIndex)
	if step != nil {
		if err := s.events.PublishStepCompleted(ctx, chain, step); err != nil {
			s.log.Warn().Str("chain", chain.ID.String()).Err(err).Msg("step completion event failed")
		}
	}
	if chain.IsCompleted {
		if err := s.events.PublishChainCompleted(ctx, chain); err != nil {
			s.log.Warn().Str("chain", chain.ID.String()).Err(err).Msg("chain completion event failed")
		}
	}
}

func (s *ChainService) ensureUser(ctx context.Context, address string) (*core.User, error) {
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

// buildStep converts a step input to the stored model, hashing secrets.
func buildStep(chainID uuid.UUID, in StepInput, now time.Time) *core.ChainStep {
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
	case core.UnlockMarkdown:
		if in.Content != "" {
			data["content"] = in.Content
		}
	case core.UnlockVideo, core.UnlockImage, core.UnlockURL:
		if in.ContentURL != "" {
			data["url"] = in.ContentURL
		}
	}

	radius := in.Radius
	if in.UnlockType == core.UnlockGPS && radius == 0 {
		radius = 50
	}

	return &core.ChainStep{
		ID:           uuid.New(),
		ChainID:      chainID,
		StepIndex:    in.StepIndex,
		Title:        in.Title,
		Message:      in.Message,
		UnlockType:   in.UnlockType,
		UnlockData:   data,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Radius:       radius,
		RewardAmount: in.RewardAmount,
		CreatedAt:    now,
	}
}
