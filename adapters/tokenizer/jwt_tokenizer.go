package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/geogift/geogift/core"
	"github.com/geogift/geogift/ports"
)

const (
	// AudienceAccess tags session tokens so other token kinds can never pass.
	AudienceAccess = "geogift:access"

	// DefaultSessionTTL is the session credential lifetime.
	DefaultSessionTTL = 8 * 24 * time.Hour
)

// JWTTokenizer implements the Tokenizer port with ES256 JWTs.
type JWTTokenizer struct {
	signKey    *ecdsa.PrivateKey
	sessionTTL time.Duration
	now        func() time.Time
}

// NewJWTTokenizer creates a tokenizer signing with the given ECDSA key.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) *JWTTokenizer {
	return &JWTTokenizer{
		signKey:    signKey,
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// SetNow overrides the clock, for expiry tests.
func (j *JWTTokenizer) SetNow(now func() time.Time) { j.now = now }

// Issue mints a session token with exp = iat + 8 days.
func (j *JWTTokenizer) Issue(address string) (string, *core.Session, error) {
	now := j.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   address,
		IssuedAt:  now,
		ExpiresAt: now.Add(j.sessionTTL),
	}

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, session, nil
}

// Authenticate verifies signature, audience, and expiry.
func (j *JWTTokenizer) Authenticate(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceAccess), jwt.WithTimeFunc(j.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrTokenExpired
		}
		return nil, core.ErrTokenInvalid
	}
	if !token.Valid {
		return nil, core.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, core.ErrTokenInvalid
	}

	return &core.Session{
		ID:        claims.ID,
		Address:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
