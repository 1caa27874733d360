package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geogift/geogift/adapters/locker"
	"github.com/geogift/geogift/core"
)

const (
	giverWallet     = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	recipientWallet = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
)

// fakeChainRepo is an in-memory ChainRepository. AdvanceStep serializes on the
// repo mutex, mirroring the row lock the postgres implementation takes.
type fakeChainRepo struct {
	mu     sync.Mutex
	chains map[uuid.UUID]*core.GiftChain
}

func newFakeChainRepo() *fakeChainRepo {
	return &fakeChainRepo{chains: make(map[uuid.UUID]*core.GiftChain)}
}

func (r *fakeChainRepo) CreateWithSteps(_ context.Context, chain *core.GiftChain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[chain.ID] = chain
	return nil
}

func (r *fakeChainRepo) Get(_ context.Context, id uuid.UUID) (*core.GiftChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain, ok := r.chains[id]
	if !ok {
		return nil, core.ErrChainNotFound
	}
	return chain, nil
}

func (r *fakeChainRepo) GetByExternalID(_ context.Context, externalID string) (*core.GiftChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, chain := range r.chains {
		if chain.ExternalChainID == externalID {
			return chain, nil
		}
	}
	return nil, core.ErrChainNotFound
}

func (r *fakeChainRepo) ListByGiver(_ context.Context, address string, _, _ int) ([]*core.GiftChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*core.GiftChain
	for _, chain := range r.chains {
		if core.AddressesEqual(chain.GiverAddress, address) {
			out = append(out, chain)
		}
	}
	return out, nil
}

func (r *fakeChainRepo) ListByRecipient(_ context.Context, address string, _, _ int) ([]*core.GiftChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*core.GiftChain
	for _, chain := range r.chains {
		if core.AddressesEqual(chain.RecipientAddress, address) {
			out = append(out, chain)
		}
	}
	return out, nil
}

func (r *fakeChainRepo) Update(_ context.Context, chain *core.GiftChain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[chain.ID] = chain
	return nil
}

func (r *fakeChainRepo) AdvanceStep(_ context.Context, chainID uuid.UUID, stepIndex int, now time.Time) (*core.GiftChain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain, ok := r.chains[chainID]
	if !ok {
		return nil, core.ErrChainNotFound
	}
	if err := chain.CompleteStep(stepIndex, now); err != nil {
		return nil, err
	}
	return chain, nil
}

func (r *fakeChainRepo) Stats(_ context.Context) (*core.ChainStats, error) {
	return &core.ChainStats{}, nil
}

// fakeClaimRepo is an append-only in-memory ClaimRepository.
type fakeClaimRepo struct {
	mu     sync.Mutex
	claims []*core.ChainClaim
}

func (r *fakeClaimRepo) Create(_ context.Context, claim *core.ChainClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims = append(r.claims, claim)
	return nil
}

func (r *fakeClaimRepo) ListByChain(_ context.Context, chainID uuid.UUID, _, _ int) ([]*core.ChainClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*core.ChainClaim
	for _, claim := range r.claims {
		if claim.ChainID == chainID {
			out = append(out, claim)
		}
	}
	return out, nil
}

func (r *fakeClaimRepo) ListByClaimer(_ context.Context, address string, _, _ int) ([]*core.ChainClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*core.ChainClaim
	for _, claim := range r.claims {
		if core.AddressesEqual(claim.ClaimerAddress, address) {
			out = append(out, claim)
		}
	}
	return out, nil
}

// fakeEvents counts published progression events.
type fakeEvents struct {
	mu             sync.Mutex
	giftClaimed    int
	stepCompleted  int
	chainCompleted int
}

func (e *fakeEvents) PublishGiftClaimed(context.Context, *core.Gift) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.giftClaimed++
	return nil
}

func (e *fakeEvents) PublishStepCompleted(context.Context, *core.GiftChain, *core.ChainStep) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stepCompleted++
	return nil
}

func (e *fakeEvents) PublishChainCompleted(context.Context, *core.GiftChain) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chainCompleted++
	return nil
}

type chainFixture struct {
	svc    *ChainService
	repo   *fakeChainRepo
	claims *fakeClaimRepo
	events *fakeEvents
}

func newChainFixture(t *testing.T) *chainFixture {
	t.Helper()
	repo := newFakeChainRepo()
	claims := &fakeClaimRepo{}
	events := &fakeEvents{}
	svc := NewChainService(repo, claims, newFakeUserRepo(), locker.NewMemoryLocker(), events, zerolog.Nop())
	return &chainFixture{svc: svc, repo: repo, claims: claims, events: events}
}

func chainInput() CreateChainInput {
	return CreateChainInput{
		Title:            "anniversary hunt",
		RecipientAddress: recipientWallet,
		RecipientEmail:   "love@example.com",
		TotalValue:       "1.0",
		ExpiryDays:       7,
		Steps: []StepInput{
			{StepIndex: 0, Title: "where we met", UnlockType: core.UnlockGPS, Latitude: 40.7580, Longitude: -73.9855, Radius: 100, RewardAmount: "0.3"},
			{StepIndex: 1, Title: "our song", UnlockType: core.UnlockQuiz, Question: "What played first?", Answer: "La Vie en Rose", RewardAmount: "0.3"},
			{StepIndex: 2, Title: "the finale", UnlockType: core.UnlockPassword, Password: "forever", RewardAmount: "0.4"},
		},
	}
}

func successfulClaim(stepIndex int) RecordClaimInput {
	return RecordClaimInput{
		StepIndex:      stepIndex,
		ClaimerAddress: recipientWallet,
		WasSuccessful:  true,
	}
}

func TestCreateChain(t *testing.T) {
	f := newChainFixture(t)

	chain, err := f.svc.Create(context.Background(), giverWallet, chainInput())
	require.NoError(t, err)

	assert.Equal(t, giverWallet, chain.GiverAddress)
	assert.Equal(t, recipientWallet, chain.RecipientAddress)
	assert.Equal(t, 3, chain.TotalSteps)
	assert.Equal(t, 0, chain.CurrentStep)
	assert.Equal(t, core.ChainActive, chain.Status(time.Now()))
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), chain.ExpiresAt, time.Minute)

	// Secrets are stored hashed, never verbatim.
	quiz := chain.Steps[1].UnlockData
	assert.Equal(t, core.HashSecret(core.NormalizeAnswer("La Vie en Rose")), quiz["answer_hash"])
	assert.NotContains(t, quiz, "answer")
	password := chain.Steps[2].UnlockData
	assert.Equal(t, core.HashSecret("forever"), password["password_hash"])
	assert.NotContains(t, password, "password")
}

func TestCreateChain_RewardMismatch(t *testing.T) {
	f := newChainFixture(t)

	in := chainInput()
	in.TotalValue = "2.0"
	_, err := f.svc.Create(context.Background(), giverWallet, in)
	assert.ErrorIs(t, err, core.ErrInvalidStepSequence)
}

func TestCreateChain_SingleStep(t *testing.T) {
	f := newChainFixture(t)

	in := chainInput()
	in.Steps = in.Steps[:1]
	in.TotalValue = "0.3"
	_, err := f.svc.Create(context.Background(), giverWallet, in)
	assert.ErrorIs(t, err, core.ErrInvalidStepSequence)
}

func TestRecordClaim_AdvancesInOrder(t *testing.T) {
	f := newChainFixture(t)
	ctx := context.Background()

	chain, err := f.svc.Create(ctx, giverWallet, chainInput())
	require.NoError(t, err)

	claim, advanced, err := f.svc.RecordClaim(ctx, chain.ID, successfulClaim(0))
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.True(t, claim.WasSuccessful)
	assert.Equal(t, 1, chain.CurrentStep)
	assert.Equal(t, 1, f.events.stepCompleted)
	assert.Zero(t, f.events.chainCompleted)
}

func TestRecordClaim_OutOfOrder(t *testing.T) {
	f := newChainFixture(t)
	ctx := context.Background()

	chain, err := f.svc.Create(ctx, giverWallet, chainInput())
	require.NoError(t, err)

	claim, advanced, err := f.svc.RecordClaim(ctx, chain.ID, successfulClaim(2))
	assert.ErrorIs(t, err, core.ErrStepOutOfOrder)
	assert.False(t, advanced)
	require.NotNil(t, claim, "rejected claims are still recorded")
	assert.Equal(t, 0, chain.CurrentStep)

	claims, err := f.svc.ListClaims(ctx, chain.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, claims, 1)
}

func TestRecordClaim_FailedAttemptDoesNotAdvance(t *testing.T) {
	f := newChainFixture(t)
	ctx := context.Background()

	chain, err := f.svc.Create(ctx, giverWallet, chainInput())
	require.NoError(t, err)

	in := successfulClaim(0)
	in.WasSuccessful = false
	in.ErrorMessage = "too far away"

	claim, advanced, err := f.svc.RecordClaim(ctx, chain.ID, in)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.False(t, claim.WasSuccessful)
	assert.Equal(t, 0, chain.CurrentStep)
	assert.Zero(t, f.events.stepCompleted)
}

func TestRecordClaim_CompletesChain(t *testing.T) {
	f := newChainFixture(t)
	ctx := context.Background()

	chain, err := f.svc.Create(ctx, giverWallet, chainInput())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, advanced, err := f.svc.RecordClaim(ctx, chain.ID, successfulClaim(i))
		require.NoError(t, err)
		require.True(t, advanced)
	}

	assert.True(t, chain.IsCompleted)
	require.NotNil(t, chain.CompletedAt)
	assert.Equal(t, 3, f.events.stepCompleted)
	assert.Equal(t, 1, f.events.chainCompleted)

	// The chain is done; further claims are recorded but rejected.
	_, advanced, err := f.svc.RecordClaim(ctx, chain.ID, successfulClaim(0))
	assert.ErrorIs(t, err, core.ErrChainNotActive)
	assert.False(t, advanced)
}

func TestRecordClaim_ConcurrentSameStep(t *testing.T) {
	f := newChainFixture(t)
	ctx := context.Background()

	chain, err := f.svc.Create(ctx, giverWallet, chainInput())
	require.NoError(t, err)

	const claimers = 8
	advancedCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, advanced, _ := f.svc.RecordClaim(ctx, chain.ID, successfulClaim(0))
			mu.Lock()
			if advanced {
				advancedCount++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Exactly one winner; every attempt persisted.
	assert.Equal(t, 1, advancedCount)
	assert.Equal(t, 1, chain.CurrentStep)
	claims, err := f.svc.ListClaims(ctx, chain.ID, 100, 0)
	require.NoError(t, err)
	assert.Len(t, claims, claimers)
}

func TestCancelChain(t *testing.T) {
	f := newChainFixture(t)
	ctx := context.Background()

	chain, err := f.svc.Create(ctx, giverWallet, chainInput())
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, chain.ID, recipientWallet)
	assert.ErrorIs(t, err, core.ErrChainNotFound, "only the giver may cancel")

	cancelled, err := f.svc.Cancel(ctx, chain.ID, giverWallet)
	require.NoError(t, err)
	assert.Equal(t, core.ChainCancelled, cancelled.Status(time.Now()))

	_, advanced, err := f.svc.RecordClaim(ctx, chain.ID, successfulClaim(0))
	assert.ErrorIs(t, err, core.ErrChainNotActive)
	assert.False(t, advanced)
}

func TestUpdateBlockchainRef(t *testing.T) {
	f := newChainFixture(t)
	ctx := context.Background()

	chain, err := f.svc.Create(ctx, giverWallet, chainInput())
	require.NoError(t, err)

	_, err = f.svc.UpdateBlockchainRef(ctx, chain.ID, recipientWallet, "42", "0xabc")
	assert.ErrorIs(t, err, core.ErrChainNotFound, "only the giver may update")

	updated, err := f.svc.UpdateBlockchainRef(ctx, chain.ID, giverWallet, "42", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "42", updated.ExternalChainID)
	assert.Equal(t, "0xabc", updated.CreationTx)

	got, err := f.svc.GetByExternalID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, chain.ID, got.ID)
}
