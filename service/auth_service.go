package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/internal/eth"
	"github.com/geogift/geogift/ports"
)

const (
	challengeTTL = 5 * time.Minute
	rateWindow   = 60 * time.Second
	rateLimitMax = 5
)

// challengeTemplate is the canonical signing message. Its bytes are what the
// wallet signs, so verification must rebuild it exactly; the generated message
// is therefore stored verbatim in the nonce store and re-read at verify time
// instead of being regenerated with a fresh timestamp.
const challengeTemplate = `Welcome to GeoGift!

Sign this message to authenticate your wallet:
Address: %s
Nonce: %s
Timestamp: %sZ

This request will not trigger any blockchain transaction or cost any gas fees.`

func nonceKey(address, nonce string) string {
	return "auth:nonce:" + address + ":" + nonce
}

func rateKey(address string) string {
	return "auth:ratelimit:" + address
}

// AuthService owns the challenge-response authentication flow: nonce issuance,
// rate limiting, EIP-191 verification, and session minting.
type AuthService struct {
	store     ports.Store
	tokenizer ports.Tokenizer
	users     ports.UserRepository
	log       zerolog.Logger
	now       func() time.Time
}

// NewAuthService creates the authentication service.
func NewAuthService(store ports.Store, tokenizer ports.Tokenizer, users ports.UserRepository, log zerolog.Logger) *AuthService {
	return &AuthService{
		store:     store,
		tokenizer: tokenizer,
		users:     users,
		log:       log.With().Str("component", "auth").Logger(),
		now:       time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (s *AuthService) SetNow(now func() time.Time) { s.now = now }

// Challenge issues a signing challenge for the wallet. Limited to 5 requests
// per wallet per 60s window; the window resets entirely when its TTL lapses.
func (s *AuthService) Challenge(ctx context.Context, walletAddress string) (*core.Challenge, error) {
	address, err := eth.NormalizeAddress(walletAddress)
	if err != nil {
		return nil, err
	}

	count, err := s.store.IncrEx(ctx, rateKey(address), rateWindow)
	if err != nil {
		return nil, err
	}
	if count > rateLimitMax {
		s.log.Warn().Str("wallet", address).Int64("count", count).Msg("challenge rate limit exceeded")
		return nil, core.ErrRateLimitExceeded
	}

	now := s.now().UTC()
	nonce, err := generateNonce(now)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	challenge := &core.Challenge{
		Address:   address,
		Nonce:     nonce,
		Message:   fmt.Sprintf(challengeTemplate, address, nonce, now.Format("2006-01-02T15:04:05.000000")),
		IssuedAt:  now,
		ExpiresAt: now.Add(challengeTTL),
	}

	if err := s.store.SetEx(ctx, nonceKey(address, nonce), challenge.Message, challengeTTL); err != nil {
		return nil, err
	}

	s.log.Info().Str("wallet", address).Str("nonce", prefix(nonce)).Msg("issued authentication challenge")
	return challenge, nil
}

// Verify checks an EIP-191 personal_sign signature over the challenge message
// and mints a session token. The nonce is consumed atomically on success, so a
// replay with the same nonce fails with ErrInvalidNonce.
func (s *AuthService) Verify(ctx context.Context, walletAddress, signature, nonce string) (string, *core.Session, error) {
	address, err := eth.NormalizeAddress(walletAddress)
	if err != nil {
		return "", nil, err
	}

	key := nonceKey(address, nonce)
	message, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		s.log.Warn().Str("wallet", address).Str("nonce", prefix(nonce)).Msg("unknown or expired nonce")
		return "", nil, core.ErrInvalidNonce
	}

	recovered, err := eth.RecoverPersonalSign([]byte(message), signature)
	if err != nil {
		s.log.Warn().Str("wallet", address).Err(err).Msg("signature recovery failed")
		return "", nil, err
	}
	if !core.AddressesEqual(recovered.Hex(), address) {
		s.log.Warn().Str("wallet", address).Str("recovered", recovered.Hex()).Msg("signature address mismatch")
		return "", nil, core.ErrAddressMismatch
	}

	// Atomic consume: under concurrent verifies of the same nonce at most one
	// caller observes the delete, the rest fail as replays.
	deleted, err := s.store.Delete(ctx, key)
	if err != nil {
		return "", nil, err
	}
	if !deleted {
		return "", nil, core.ErrInvalidNonce
	}

	token, session, err := s.tokenizer.Issue(address)
	if err != nil {
		return "", nil, fmt.Errorf("issue session: %w", err)
	}

	s.ensureUser(ctx, address)

	s.log.Info().Str("wallet", address).Str("nonce", prefix(nonce)).Msg("wallet authenticated")
	return token, session, nil
}

// Authenticate validates a session token and returns its session.
func (s *AuthService) Authenticate(token string) (*core.Session, error) {
	return s.tokenizer.Authenticate(token)
}

// ensureUser lazily creates the wallet's user record. Auth must not fail when
// this does; the user gets created on a later request instead.
func (s *AuthService) ensureUser(ctx context.Context, address string) {
	_, err := s.users.GetByWallet(ctx, address)
	if err == nil {
		return
	}
	if err != core.ErrUserNotFound {
		s.log.Error().Str("wallet", address).Err(err).Msg("user lookup failed")
		return
	}
	if err := s.users.Create(ctx, core.NewUser(address, s.now())); err != nil {
		s.log.Error().Str("wallet", address).Err(err).Msg("user creation failed")
		return
	}
	s.log.Info().Str("wallet", address).Msg("created user account")
}

// generateNonce reduces 32 random bytes plus a timestamp through SHA-256 to a
// fixed 64-hex-char token.
func generateNonce(now time.Time) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	buf = append(buf, []byte(strconv.FormatInt(now.Unix(), 10))...)
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

// prefix truncates a nonce for logging; full nonces never hit the logs.
func prefix(nonce string) string {
	if len(nonce) <= 8 {
		return nonce
	}
	return nonce[:8] + "..."
}
