package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	recipientAddr = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	strangerAddr  = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"
)

func testGift(now time.Time) *Gift {
	return &Gift{
		ID:               uuid.New(),
		RecipientAddress: recipientAddr,
		EscrowID:         "escrow-1",
		Status:           GiftPending,
		UnlockType:       UnlockGPS,
		ExpiresAt:        now.Add(24 * time.Hour),
	}
}

func TestClaimable(t *testing.T) {
	now := time.Now()
	gift := testGift(now)

	assert.NoError(t, gift.Claimable(recipientAddr, now))
}

func TestClaimable_CaseInsensitiveAddress(t *testing.T) {
	now := time.Now()
	gift := testGift(now)

	assert.NoError(t, gift.Claimable("0x8BA1F109551BD432803012645AC136DDD64DBA72", now))
}

func TestClaimable_WrongRecipient(t *testing.T) {
	now := time.Now()
	gift := testGift(now)

	assert.ErrorIs(t, gift.Claimable(strangerAddr, now), ErrGiftNotClaimable)
}

func TestClaimable_Expired(t *testing.T) {
	now := time.Now()
	gift := testGift(now)

	assert.ErrorIs(t, gift.Claimable(recipientAddr, now.Add(48*time.Hour)), ErrGiftNotClaimable)
}

func TestMarkClaimed(t *testing.T) {
	now := time.Now()
	gift := testGift(now)

	require.NoError(t, gift.MarkClaimed("0xtx", now))
	assert.Equal(t, GiftClaimed, gift.Status)
	assert.Equal(t, "0xtx", gift.ClaimTx)
	require.NotNil(t, gift.ClaimedAt)

	// Second claim is an idempotent rejection.
	assert.ErrorIs(t, gift.MarkClaimed("0xtx2", now), ErrGiftNotClaimable)
	assert.ErrorIs(t, gift.Claimable(recipientAddr, now), ErrGiftNotClaimable)
}
