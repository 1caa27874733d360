package core

import "time"

// Challenge is an ephemeral signing challenge issued to a wallet. It is never
// persisted in the relational store; only the nonce store holds it, keyed by
// (wallet, nonce), with the exact message text as its value so verification can
// rebuild the signed bytes without regenerating the embedded timestamp.
type Challenge struct {
	Address   string // checksummed wallet address
	Nonce     string // 64 hex chars, single use
	Message   string // exact text to be signed
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Session is an authenticated wallet session carried by a signed token. It is
// stateless: nothing is stored server-side and it dies only by expiry.
type Session struct {
	ID        string // token jti
	Address   string // checksummed wallet address
	IssuedAt  time.Time
	ExpiresAt time.Time
}
