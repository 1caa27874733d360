package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geogift/geogift/adapters/store"
	"github.com/geogift/geogift/adapters/tokenizer"
	"github.com/geogift/geogift/core"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*core.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*core.User)}
}

func (r *fakeUserRepo) GetByWallet(_ context.Context, address string) (*core.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[strings.ToLower(address)]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[strings.ToLower(user.WalletAddress)] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[strings.ToLower(user.WalletAddress)] = user
	return nil
}

type authFixture struct {
	svc    *AuthService
	store  *store.MemoryStore
	users  *fakeUserRepo
	key    *ecdsa.PrivateKey // secp256k1 wallet key
	wallet string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	walletKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	memStore := store.NewMemoryStore()
	users := newFakeUserRepo()
	svc := NewAuthService(memStore, tokenizer.NewJWTTokenizer(signKey), users, zerolog.Nop())

	return &authFixture{
		svc:    svc,
		store:  memStore,
		users:  users,
		key:    walletKey,
		wallet: ethcrypto.PubkeyToAddress(walletKey.PublicKey).Hex(),
	}
}

// sign produces the EIP-191 personal_sign signature a wallet would emit.
func (f *authFixture) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := ethcrypto.Sign(accounts.TextHash([]byte(message)), f.key)
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

func TestChallenge(t *testing.T) {
	f := newAuthFixture(t)

	challenge, err := f.svc.Challenge(context.Background(), strings.ToLower(f.wallet))
	require.NoError(t, err)

	assert.Equal(t, f.wallet, challenge.Address, "address is checksummed")
	assert.Len(t, challenge.Nonce, 64)
	assert.Contains(t, challenge.Message, "Welcome to GeoGift!")
	assert.Contains(t, challenge.Message, "Address: "+f.wallet)
	assert.Contains(t, challenge.Message, "Nonce: "+challenge.Nonce)
	assert.Contains(t, challenge.Message, "not trigger any blockchain transaction")
	assert.Equal(t, 5*time.Minute, challenge.ExpiresAt.Sub(challenge.IssuedAt))
}

func TestChallenge_InvalidAddress(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Challenge(context.Background(), "0x123")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestChallenge_NoncesAreUnique(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	a, err := f.svc.Challenge(ctx, f.wallet)
	require.NoError(t, err)
	b, err := f.svc.Challenge(ctx, f.wallet)
	require.NoError(t, err)

	assert.NotEqual(t, a.Nonce, b.Nonce)
}

func TestChallenge_RateLimit(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.Challenge(ctx, f.wallet)
		require.NoError(t, err, "request %d within the window", i+1)
	}

	_, err := f.svc.Challenge(ctx, f.wallet)
	assert.ErrorIs(t, err, core.ErrRateLimitExceeded)

	// Another wallet is unaffected.
	otherKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	_, err = f.svc.Challenge(ctx, ethcrypto.PubkeyToAddress(otherKey.PublicKey).Hex())
	assert.NoError(t, err)
}

func TestChallenge_RateLimitWindowResets(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	base := time.Now()
	f.svc.SetNow(func() time.Time { return base })
	f.store.SetNow(func() time.Time { return base })

	for i := 0; i < 5; i++ {
		_, err := f.svc.Challenge(ctx, f.wallet)
		require.NoError(t, err)
	}
	_, err := f.svc.Challenge(ctx, f.wallet)
	require.ErrorIs(t, err, core.ErrRateLimitExceeded)

	// Window lapses; the whole allowance comes back at once.
	later := base.Add(61 * time.Second)
	f.svc.SetNow(func() time.Time { return later })
	f.store.SetNow(func() time.Time { return later })

	for i := 0; i < 5; i++ {
		_, err := f.svc.Challenge(ctx, f.wallet)
		require.NoError(t, err, "request %d in the fresh window", i+1)
	}
}

func TestVerify(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Challenge(ctx, f.wallet)
	require.NoError(t, err)

	token, session, err := f.svc.Verify(ctx, f.wallet, f.sign(t, challenge.Message), challenge.Nonce)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, f.wallet, session.Address)

	// The minted token authenticates.
	got, err := f.svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, f.wallet, got.Address)

	// First auth created the user lazily.
	_, err = f.users.GetByWallet(ctx, f.wallet)
	assert.NoError(t, err)
}

func TestVerify_ReplayFails(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Challenge(ctx, f.wallet)
	require.NoError(t, err)
	sig := f.sign(t, challenge.Message)

	_, _, err = f.svc.Verify(ctx, f.wallet, sig, challenge.Nonce)
	require.NoError(t, err)

	// Same nonce, same valid signature: the nonce was consumed.
	_, _, err = f.svc.Verify(ctx, f.wallet, sig, challenge.Nonce)
	assert.ErrorIs(t, err, core.ErrInvalidNonce)
}

func TestVerify_UnknownNonce(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.svc.Verify(context.Background(), f.wallet, "0x00", strings.Repeat("ab", 32))
	assert.ErrorIs(t, err, core.ErrInvalidNonce)
}

func TestVerify_ExpiredNonce(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	base := time.Now()
	f.svc.SetNow(func() time.Time { return base })
	f.store.SetNow(func() time.Time { return base })

	challenge, err := f.svc.Challenge(ctx, f.wallet)
	require.NoError(t, err)
	sig := f.sign(t, challenge.Message)

	later := base.Add(6 * time.Minute)
	f.store.SetNow(func() time.Time { return later })

	_, _, err = f.svc.Verify(ctx, f.wallet, sig, challenge.Nonce)
	assert.ErrorIs(t, err, core.ErrInvalidNonce)
}

func TestVerify_WrongKey(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Challenge(ctx, f.wallet)
	require.NoError(t, err)

	attacker, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	sig, err := ethcrypto.Sign(accounts.TextHash([]byte(challenge.Message)), attacker)
	require.NoError(t, err)

	_, _, err = f.svc.Verify(ctx, f.wallet, hexutil.Encode(sig), challenge.Nonce)
	assert.ErrorIs(t, err, core.ErrAddressMismatch)

	// The failed attempt did not consume the nonce; the real wallet still can.
	_, _, err = f.svc.Verify(ctx, f.wallet, f.sign(t, challenge.Message), challenge.Nonce)
	assert.NoError(t, err)
}

func TestVerify_TamperedMessage(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Challenge(ctx, f.wallet)
	require.NoError(t, err)

	// Signing anything but the stored challenge text recovers a different
	// address.
	sig := f.sign(t, challenge.Message+" ")
	_, _, err = f.svc.Verify(ctx, f.wallet, sig, challenge.Nonce)
	assert.ErrorIs(t, err, core.ErrAddressMismatch)
}

func TestVerify_MalformedSignature(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	challenge, err := f.svc.Challenge(ctx, f.wallet)
	require.NoError(t, err)

	_, _, err = f.svc.Verify(ctx, f.wallet, "0xdeadbeef", challenge.Nonce)
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
}
