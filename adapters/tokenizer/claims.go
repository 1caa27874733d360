package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the registered claims carried by a session token. The
// subject is the checksummed wallet address.
type AccessClaims struct {
	jwt.RegisteredClaims
}
