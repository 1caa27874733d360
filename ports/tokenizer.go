package ports

import "github.com/geogift/geogift/core"

// Tokenizer mints and verifies the stateless session credential bound to a
// wallet address.
type Tokenizer interface {
	// Issue mints a signed token for the given checksummed address.
	Issue(address string) (token string, session *core.Session, err error)

	// Authenticate verifies signature and expiry, returning the session.
	// Fails with core.ErrTokenExpired or core.ErrTokenInvalid.
	Authenticate(token string) (*core.Session, error)
}
