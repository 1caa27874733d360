package core

import "errors"

var (
	// ErrInvalidAddress is returned when a wallet address does not match the
	// canonical Ethereum address shape.
	ErrInvalidAddress = errors.New("invalid ethereum address")

	// ErrRateLimitExceeded is returned when a wallet requests too many
	// challenges inside the rate window.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidNonce is returned when a nonce is unknown, expired, or has
	// already been consumed.
	ErrInvalidNonce = errors.New("invalid or expired nonce")

	// ErrInvalidSignature is returned when a signature is malformed or does
	// not recover to any address.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrAddressMismatch is returned when the recovered signer differs from
	// the claimed wallet address.
	ErrAddressMismatch = errors.New("recovered address does not match")

	// ErrTokenExpired is returned when a session token has expired.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a session token fails verification.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrInvalidStepSequence is returned when chain steps do not form the
	// contiguous sequence 0..N-1, or the step count is out of bounds.
	ErrInvalidStepSequence = errors.New("invalid step sequence")

	// ErrStepOutOfOrder is returned when a step completion targets any index
	// other than the chain's current step.
	ErrStepOutOfOrder = errors.New("step claimed out of order")

	// ErrChainNotFound is returned when a chain lookup misses.
	ErrChainNotFound = errors.New("chain not found")

	// ErrChainNotActive is returned when a completion is attempted on a
	// completed, expired, or cancelled chain.
	ErrChainNotActive = errors.New("chain is not active")

	// ErrGiftNotFound is returned when a gift lookup misses.
	ErrGiftNotFound = errors.New("gift not found")

	// ErrGiftNotClaimable is returned when a gift is already claimed, expired,
	// or the caller is not the designated recipient.
	ErrGiftNotClaimable = errors.New("gift is not claimable")

	// ErrUnlockFailed is returned when the unlock proof (location, password,
	// quiz answer) does not satisfy the gift or step condition.
	ErrUnlockFailed = errors.New("unlock verification failed")

	// ErrUserNotFound is returned when a user lookup misses.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnavailable is returned when a backing store is unreachable or times
	// out. Callers decide whether to retry.
	ErrUnavailable = errors.New("store unavailable")
)
