package application

import (
	"context"
	"time"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/metrics"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// FetchFunc loads a value from the authoritative store.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// CacheOrFetch returns the value cached at key, or calls fetch on a miss and
// caches its result for ttl. The returned value comes from fetch whenever the
// cache missed, whether or not the write-back succeeded. A fetch error is
// returned as is and nothing is cached.
//
// Concurrent callers missing on the same key each call fetch; there is no
// in-process coalescing. Because the write-back is unconditional, a fetch
// that started before an invalidation can store its older result after the
// invalidation's delete. That entry stays stale until the next invalidation
// or until ttl expires.
func CacheOrFetch[T any](ctx context.Context, store domain.CacheStore, key string, ttl time.Duration, fetch FetchFunc[T]) (T, error) {
	var cached T
	if store.Get(ctx, key, &cached) {
		return cached, nil
	}

	metrics.IncrementCacheFetches()
	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	store.Set(ctx, key, value, ttl)
	return value, nil
}
