package session

import (
	"context"
	"time"
)

// Store persists the current session token per client session key.
//
// The backing medium is external and caller-visible (Redis, or memory in
// dev); the core only requires read/write/delete semantics with an expressed
// TTL. Entries are scoped to a single caller's session identity, so
// implementations need no cross-session coordination.
type Store interface {
	// Set stores token under key with the given TTL. TTL must be positive.
	Set(ctx context.Context, key, token string, ttl time.Duration) error

	// Get returns the token stored under key, or ErrNoSession when absent or
	// expired.
	Get(ctx context.Context, key string) (string, error)

	// Clear removes the entry under key. Clearing an absent key is not an
	// error.
	Clear(ctx context.Context, key string) error
}
