// Package counter defines the shared TTL-capable counter capability the
// rate limiter runs against, plus the Redis and in-memory adapters.
package counter

import (
	"context"
	"time"
)

// Store is a shared, mutable, externally-owned counter namespace with
// per-key expiry. Increment must be atomic with respect to concurrent
// callers: two racing first-increments observe 1 and 2, never 1 and 1.
type Store interface {
	// Get returns the current value and whether the key exists.
	Get(ctx context.Context, key string) (int64, bool, error)
	// SetWithExpiry writes value and starts the key's TTL clock.
	SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error
	// Increment adds one, creating the key at 1, and returns the
	// post-increment value.
	Increment(ctx context.Context, key string) (int64, error)
	// Expire sets the TTL of an existing key. Unknown keys are a no-op.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Delete removes the key outright. Unknown keys are a no-op.
	Delete(ctx context.Context, key string) error
	// TTL returns the remaining lifetime, or 0 when the key is absent,
	// expired, or has no expiry set.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
