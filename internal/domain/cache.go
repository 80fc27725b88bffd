package domain

import (
	"context"
	"time"
)

// TTLPolicy holds the four expiry tiers used by the cache facades.
type TTLPolicy struct {
	Short    time.Duration
	Medium   time.Duration
	Long     time.Duration
	VeryLong time.Duration
}

// DefaultTTLPolicy returns 60s / 5m / 1h / 24h.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Short:    60 * time.Second,
		Medium:   5 * time.Minute,
		Long:     time.Hour,
		VeryLong: 24 * time.Hour,
	}
}

// CacheStore is a best-effort key/value cache in front of the relational store.
// None of its methods return errors: an unreachable backend or an undecodable
// payload degrades to a miss, false, or zero, and the implementation logs it.
type CacheStore interface {
	// Get decodes the JSON value stored at key into dest and reports whether it did.
	Get(ctx context.Context, key string, dest any) bool

	// Set stores value as JSON with the given expiry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) bool

	// Delete reports whether a key was actually removed.
	Delete(ctx context.Context, key string) bool

	// DeletePattern removes every key matching the glob in one batch and returns
	// the number removed. If the keys cannot be listed nothing is removed.
	DeletePattern(ctx context.Context, pattern string) int64
}

// Pinger is implemented by every backing service the health checks probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
