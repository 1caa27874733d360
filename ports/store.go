package ports

import (
	"context"
	"time"
)

// Store is the key-value contract behind nonce storage and rate limiting. Any
// conforming store (Redis, in-process for tests) satisfies it; protocol logic
// never touches a concrete client API.
type Store interface {
	// SetEx stores a key with a value and TTL.
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error

	// Get retrieves a value. ok is false when the key is absent or expired.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Delete removes a key atomically and reports whether it existed. Under
	// concurrent deletes of the same key at most one caller observes true.
	Delete(ctx context.Context, key string) (bool, error)

	// IncrEx increments a counter as one atomic unit, starting the TTL on
	// the first increment only, and returns the new count. The counter
	// resets when the TTL lapses; increments inside the window never extend
	// it.
	IncrEx(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
