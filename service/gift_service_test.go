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

	"github.com/geogift/geogift/core"
)

// fakeGiftRepo is an in-memory GiftRepository.
type fakeGiftRepo struct {
	mu    sync.Mutex
	gifts map[uuid.UUID]*core.Gift
}

func newFakeGiftRepo() *fakeGiftRepo {
	return &fakeGiftRepo{gifts: make(map[uuid.UUID]*core.Gift)}
}

func (r *fakeGiftRepo) Create(_ context.Context, gift *core.Gift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gifts[gift.ID] = gift
	return nil
}

func (r *fakeGiftRepo) Get(_ context.Context, id uuid.UUID) (*core.Gift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gift, ok := r.gifts[id]
	if !ok {
		return nil, core.ErrGiftNotFound
	}
	return gift, nil
}

func (r *fakeGiftRepo) GetByEscrowID(_ context.Context, escrowID string) (*core.Gift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, gift := range r.gifts {
		if gift.EscrowID == escrowID {
			return gift, nil
		}
	}
	return nil, core.ErrGiftNotFound
}

func (r *fakeGiftRepo) ListBySender(_ context.Context, senderID uuid.UUID, _, _ int) ([]*core.Gift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*core.Gift
	for _, gift := range r.gifts {
		if gift.SenderID == senderID {
			out = append(out, gift)
		}
	}
	return out, nil
}

func (r *fakeGiftRepo) ListByRecipient(_ context.Context, address string, _, _ int) ([]*core.Gift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*core.Gift
	for _, gift := range r.gifts {
		if core.AddressesEqual(gift.RecipientAddress, address) {
			out = append(out, gift)
		}
	}
	return out, nil
}

func (r *fakeGiftRepo) Update(_ context.Context, gift *core.Gift) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gifts[gift.ID] = gift
	return nil
}

type giftFixture struct {
	svc    *GiftService
	events *fakeEvents
}

func newGiftFixture(t *testing.T) *giftFixture {
	t.Helper()
	events := &fakeEvents{}
	svc := NewGiftService(newFakeGiftRepo(), newFakeUserRepo(), events, zerolog.Nop())
	return &giftFixture{svc: svc, events: events}
}

func giftInput() CreateGiftInput {
	return CreateGiftInput{
		RecipientAddress: recipientWallet,
		EscrowID:         "escrow-7",
		Latitude:         40.7580,
		Longitude:        -73.9855,
		Radius:           100,
		Message:          "meet me where we first met",
		UnlockType:       core.UnlockGPS,
		RewardContent:    "https://example.com/surprise",
		ExpiryHours:      24,
	}
}

func gpsAttempt(lat, lon float64) ClaimGiftInput {
	return ClaimGiftInput{Latitude: &lat, Longitude: &lon}
}

func TestCreateGift(t *testing.T) {
	f := newGiftFixture(t)

	gift, err := f.svc.Create(context.Background(), giverWallet, giftInput())
	require.NoError(t, err)

	assert.Equal(t, core.GiftPending, gift.Status)
	assert.Equal(t, recipientWallet, gift.RecipientAddress)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), gift.ExpiresAt, time.Minute)

	got, err := f.svc.GetByEscrowID(context.Background(), "escrow-7")
	require.NoError(t, err)
	assert.Equal(t, gift.ID, got.ID)
}

func TestCreateGift_ExpiryBounds(t *testing.T) {
	f := newGiftFixture(t)

	in := giftInput()
	in.ExpiryHours = 200
	_, err := f.svc.Create(context.Background(), giverWallet, in)
	assert.ErrorIs(t, err, core.ErrGiftNotClaimable)
}

func TestCreateGift_HashesPassword(t *testing.T) {
	f := newGiftFixture(t)

	in := giftInput()
	in.UnlockType = core.UnlockPassword
	in.Password = "hunter2"

	gift, err := f.svc.Create(context.Background(), giverWallet, in)
	require.NoError(t, err)
	assert.Equal(t, core.HashSecret("hunter2"), gift.UnlockData["password_hash"])
	assert.NotContains(t, gift.UnlockData, "password")
}

func TestClaimGift_WithinRadius(t *testing.T) {
	f := newGiftFixture(t)
	ctx := context.Background()

	gift, err := f.svc.Create(ctx, giverWallet, giftInput())
	require.NoError(t, err)

	// ~50m from the target.
	claimed, err := f.svc.Claim(ctx, gift.ID, recipientWallet, gpsAttempt(40.75845, -73.9855))
	require.NoError(t, err)
	assert.Equal(t, core.GiftClaimed, claimed.Status)
	assert.NotNil(t, claimed.ClaimedAt)
	assert.Equal(t, 1, f.events.giftClaimed)
}

func TestClaimGift_OutsideRadius(t *testing.T) {
	f := newGiftFixture(t)
	ctx := context.Background()

	gift, err := f.svc.Create(ctx, giverWallet, giftInput())
	require.NoError(t, err)

	// ~500m out: rejected, gift stays PENDING and claimable.
	_, err = f.svc.Claim(ctx, gift.ID, recipientWallet, gpsAttempt(40.7625, -73.9855))
	assert.ErrorIs(t, err, core.ErrUnlockFailed)

	got, err := f.svc.Get(ctx, gift.ID)
	require.NoError(t, err)
	assert.Equal(t, core.GiftPending, got.Status)
	assert.Zero(t, f.events.giftClaimed)

	// A better-placed retry succeeds.
	_, err = f.svc.Claim(ctx, gift.ID, recipientWallet, gpsAttempt(40.7580, -73.9855))
	assert.NoError(t, err)
}

func TestClaimGift_WrongRecipient(t *testing.T) {
	f := newGiftFixture(t)
	ctx := context.Background()

	gift, err := f.svc.Create(ctx, giverWallet, giftInput())
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, gift.ID, giverWallet, gpsAttempt(40.7580, -73.9855))
	assert.ErrorIs(t, err, core.ErrGiftNotClaimable)
}

func TestClaimGift_Twice(t *testing.T) {
	f := newGiftFixture(t)
	ctx := context.Background()

	gift, err := f.svc.Create(ctx, giverWallet, giftInput())
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, gift.ID, recipientWallet, gpsAttempt(40.7580, -73.9855))
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, gift.ID, recipientWallet, gpsAttempt(40.7580, -73.9855))
	assert.ErrorIs(t, err, core.ErrGiftNotClaimable)
	assert.Equal(t, 1, f.events.giftClaimed)
}

func TestExpireGift(t *testing.T) {
	f := newGiftFixture(t)
	ctx := context.Background()

	gift, err := f.svc.Create(ctx, giverWallet, giftInput())
	require.NoError(t, err)

	// Not yet expired.
	_, err = f.svc.Expire(ctx, gift.ID, giverWallet)
	assert.ErrorIs(t, err, core.ErrGiftNotClaimable)

	f.svc.SetNow(func() time.Time { return time.Now().Add(48 * time.Hour) })

	// Only the sender may reclaim.
	_, err = f.svc.Expire(ctx, gift.ID, recipientWallet)
	assert.ErrorIs(t, err, core.ErrGiftNotFound)

	expired, err := f.svc.Expire(ctx, gift.ID, giverWallet)
	require.NoError(t, err)
	assert.Equal(t, core.GiftExpired, expired.Status)
}
