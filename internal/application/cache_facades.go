package application

import (
	"context"
	"time"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/rediskeys"
)

// EntityCache narrows a CacheStore to one key prefix with a default TTL tier.
// Ids are strings; numeric ids use their decimal form.
type EntityCache struct {
	store      domain.CacheStore
	prefix     rediskeys.Prefix
	defaultTTL time.Duration
}

// NewEntityCache creates a facade for prefix.
func NewEntityCache(store domain.CacheStore, prefix rediskeys.Prefix, defaultTTL time.Duration) *EntityCache {
	return &EntityCache{store: store, prefix: prefix, defaultTTL: defaultTTL}
}

// Prefix returns the facade's key prefix.
func (c *EntityCache) Prefix() rediskeys.Prefix { return c.prefix }

// DefaultTTL returns the facade's expiry tier.
func (c *EntityCache) DefaultTTL() time.Duration { return c.defaultTTL }

// Key returns the key for id and an optional suffix.
func (c *EntityCache) Key(id, suffix string) string {
	return rediskeys.SuffixedKey(c.prefix, id, suffix)
}

// Get decodes the entry for (id, suffix) into dest.
func (c *EntityCache) Get(ctx context.Context, id, suffix string, dest any) bool {
	return c.store.Get(ctx, c.Key(id, suffix), dest)
}

// Set stores value under (id, suffix) with the default TTL.
func (c *EntityCache) Set(ctx context.Context, id, suffix string, value any) bool {
	return c.store.Set(ctx, c.Key(id, suffix), value, c.defaultTTL)
}

// SetWithTTL stores value under (id, suffix) with an explicit TTL.
func (c *EntityCache) SetWithTTL(ctx context.Context, id, suffix string, value any, ttl time.Duration) bool {
	return c.store.Set(ctx, c.Key(id, suffix), value, ttl)
}

// Delete removes the entry for (id, suffix).
func (c *EntityCache) Delete(ctx context.Context, id, suffix string) bool {
	return c.store.Delete(ctx, c.Key(id, suffix))
}

// DeleteAll removes the bare key of id and every suffixed variant.
func (c *EntityCache) DeleteAll(ctx context.Context, id string) int64 {
	var deleted int64
	if c.store.Delete(ctx, c.Key(id, "")) {
		deleted++
	}
	return deleted + c.store.DeletePattern(ctx, rediskeys.EntityPattern(c.prefix, id))
}

// Caches bundles the per-entity facades over one store.
type Caches struct {
	Store     domain.CacheStore
	TTL       domain.TTLPolicy
	User      *EntityCache
	Post      *EntityCache
	Workspace *EntityCache
	Page      *EntityCache
	Session   *EntityCache
}

// NewCaches builds every facade with its default tier.
func NewCaches(store domain.CacheStore, ttl domain.TTLPolicy) *Caches {
	if store == nil {
		panic("cache store is nil in NewCaches")
	}
	return &Caches{
		Store:     store,
		TTL:       ttl,
		User:      NewEntityCache(store, rediskeys.PrefixUser, ttl.Long),
		Post:      NewEntityCache(store, rediskeys.PrefixPost, ttl.Medium),
		Workspace: NewEntityCache(store, rediskeys.PrefixWorkspace, ttl.Long),
		Page:      NewEntityCache(store, rediskeys.PrefixPage, ttl.Medium),
		Session:   NewEntityCache(store, rediskeys.PrefixSession, ttl.VeryLong),
	}
}

// For returns the facade serving prefix.
func (c *Caches) For(p rediskeys.Prefix) *EntityCache {
	switch p {
	case rediskeys.PrefixUser:
		return c.User
	case rediskeys.PrefixPost:
		return c.Post
	case rediskeys.PrefixWorkspace:
		return c.Workspace
	case rediskeys.PrefixPage:
		return c.Page
	case rediskeys.PrefixSession:
		return c.Session
	}
	panic("application: no cache facade for prefix " + p.String())
}
