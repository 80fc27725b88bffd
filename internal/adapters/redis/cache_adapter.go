package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/metrics"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const defaultScanCount = 500

// CacheAdapter implements domain.CacheStore on Redis. Values are stored as JSON.
// Every failure is logged and reported as a miss, false, or zero.
type CacheAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
	scanCount   int64
}

// NewCacheAdapter creates a new instance of CacheAdapter around an injected client.
func NewCacheAdapter(redisClient *redis.Client, logger domain.Logger) *CacheAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewCacheAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewCacheAdapter")
	}
	return &CacheAdapter{
		redisClient: redisClient,
		logger:      logger,
		scanCount:   defaultScanCount,
	}
}

// Get decodes the value at key into dest.
func (a *CacheAdapter) Get(ctx context.Context, key string, dest any) bool {
	val, err := a.redisClient.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		a.logger.Debug(ctx, "Cache miss", "key", key)
		metrics.IncrementCacheOperation("get", metrics.ResultMiss)
		return false
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get value from Redis cache", "key", key, "error", err.Error())
		metrics.IncrementCacheOperation("get", metrics.ResultError)
		return false
	}

	if err = json.Unmarshal(val, dest); err != nil {
		a.logger.Error(ctx, "Failed to unmarshal cached value, treating as miss", "key", key, "error", err.Error())
		metrics.IncrementCacheOperation("get", metrics.ResultDecodeError)
		return false
	}

	a.logger.Debug(ctx, "Cache hit", "key", key)
	metrics.IncrementCacheOperation("get", metrics.ResultHit)
	return true
}

// Set stores value as JSON at key with the given TTL.
func (a *CacheAdapter) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	payloadBytes, err := json.Marshal(value)
	if err != nil {
		a.logger.Error(ctx, "Failed to marshal value for caching", "key", key, "error", err.Error())
		metrics.IncrementCacheOperation("set", metrics.ResultError)
		return false
	}

	if err = a.redisClient.Set(ctx, key, payloadBytes, ttl).Err(); err != nil {
		a.logger.Error(ctx, "Failed to set value in Redis cache", "key", key, "error", err.Error())
		metrics.IncrementCacheOperation("set", metrics.ResultError)
		return false
	}

	a.logger.Debug(ctx, "Cached value", "key", key, "ttl", ttl.String())
	metrics.IncrementCacheOperation("set", metrics.ResultOK)
	return true
}

// Delete removes key and reports whether it existed.
func (a *CacheAdapter) Delete(ctx context.Context, key string) bool {
	n, err := a.redisClient.Del(ctx, key).Result()
	if err != nil {
		a.logger.Error(ctx, "Failed to delete key from Redis cache", "key", key, "error", err.Error())
		metrics.IncrementCacheOperation("delete", metrics.ResultError)
		return false
	}
	metrics.IncrementCacheOperation("delete", metrics.ResultOK)
	metrics.AddCacheKeysDeleted(n)
	return n > 0
}

// DeletePattern collects every key matching pattern with SCAN and removes them
// with a single DEL. A failed scan aborts before anything is deleted.
func (a *CacheAdapter) DeletePattern(ctx context.Context, pattern string) int64 {
	var keys []string
	iter := a.redisClient.Scan(ctx, 0, pattern, a.scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		a.logger.Error(ctx, "Failed to list keys for pattern delete", "pattern", pattern, "error", err.Error())
		metrics.IncrementCacheOperation("delete_pattern", metrics.ResultError)
		return 0
	}
	if len(keys) == 0 {
		metrics.IncrementCacheOperation("delete_pattern", metrics.ResultOK)
		return 0
	}

	n, err := a.redisClient.Del(ctx, keys...).Result()
	if err != nil {
		a.logger.Error(ctx, "Failed to delete keys for pattern", "pattern", pattern, "matched", len(keys), "error", err.Error())
		metrics.IncrementCacheOperation("delete_pattern", metrics.ResultError)
		return 0
	}

	a.logger.Debug(ctx, "Deleted keys by pattern", "pattern", pattern, "deleted", n)
	metrics.IncrementCacheOperation("delete_pattern", metrics.ResultOK)
	metrics.AddCacheKeysDeleted(n)
	return n
}

// Ping checks that Redis is reachable.
func (a *CacheAdapter) Ping(ctx context.Context) error {
	return a.redisClient.Ping(ctx).Err()
}
