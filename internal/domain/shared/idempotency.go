package shared

import (
	"context"
	"strings"
	"time"
)

// IdempotencyStore holds short-lived claims on keys so that a retried
// payment submission or a redelivered event takes effect once.
type IdempotencyStore interface {
	// Claim takes key for ttl. It reports false when an unexpired claim exists.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Claimed reports whether key holds an unexpired claim
	Claimed(ctx context.Context, key string) (bool, error)

	// Release drops the claim so the guarded work can be retried
	Release(ctx context.Context, key string) error

	Close() error
}

// IdempotencyScope keeps the keys of different callers apart in one store
type IdempotencyScope string

const (
	// ScopePayment guards payment registration per obligation and client key
	ScopePayment IdempotencyScope = "payment"
	// ScopeEvent guards outbox event handlers per event ID
	ScopeEvent IdempotencyScope = "event"
)

// Key joins the scope and parts into a store key, "payment:<obligation>:<client key>"
func (s IdempotencyScope) Key(parts ...string) string {
	return string(s) + ":" + strings.Join(parts, ":")
}

// IdempotencyConfig controls how long claims last
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyTTL covers a client retrying the same submission through a working day
const DefaultIdempotencyTTL = 24 * time.Hour

// DefaultIdempotencyConfig returns enabled claims lasting DefaultIdempotencyTTL
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: DefaultIdempotencyTTL, Enabled: true}
}
