package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/rediskeys"
)

// pendingTTLFactor sizes the pending key's lifetime in windows. It only has to
// outlive the flush that follows the window.
const (
	pendingTTLFactor = 6
	minPendingTTL    = time.Minute
)

// KEYS[1] lock, KEYS[2] pending. ARGV: holder, window ms, state, pending ttl ms.
// Returns {1, 0} when the caller writes now, {0, ms left} when state is pending.
var offerScript = redis.NewScript(`
if redis.call('SET', KEYS[1], ARGV[1], 'NX', 'PX', ARGV[2]) then
	redis.call('DEL', KEYS[2])
	return {1, 0}
end
redis.call('SET', KEYS[2], ARGV[3], 'PX', ARGV[4])
return {0, redis.call('PTTL', KEYS[1])}
`)

// KEYS[1] lock, KEYS[2] pending. ARGV: holder, window ms.
// Returns {0} when nothing is pending, {1, ms left} while the window is open
// and {2, state} once the state is claimed.
var claimScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 0 then
	return {0}
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
	return {1, ttl}
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
local state = redis.call('GET', KEYS[2])
redis.call('DEL', KEYS[2])
return {2, state}
`)

var takeScript = redis.NewScript(`
local state = redis.call('GET', KEYS[1])
if state then
	redis.call('DEL', KEYS[1])
end
return state
`)

// SnapshotThrottleAdapter implements domain.SnapshotThrottle with a SET NX PX
// window and a pending key per page, so windows are shared by every pod.
type SnapshotThrottleAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
	holder      string
}

// NewSnapshotThrottleAdapter creates the throttle. holder is written as the lock
// value to show which pod opened a window.
func NewSnapshotThrottleAdapter(redisClient *redis.Client, logger domain.Logger, holder string) *SnapshotThrottleAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewSnapshotThrottleAdapter")
	}
	return &SnapshotThrottleAdapter{
		redisClient: redisClient,
		logger:      logger,
		holder:      holder,
	}
}

// Offer opens a window for pageID or keeps state as its pending snapshot.
func (a *SnapshotThrottleAdapter) Offer(ctx context.Context, pageID string, state []byte, window time.Duration) (domain.SnapshotOffer, error) {
	lockKey := rediskeys.CRDTSnapshotLockKey(pageID)
	pendingTTL := max(window*pendingTTLFactor, minPendingTTL)

	res, err := offerScript.Run(ctx, a.redisClient,
		[]string{lockKey, rediskeys.CRDTSnapshotPendingKey(pageID)},
		a.holder, toMillis(window), state, toMillis(pendingTTL),
	).Int64Slice()
	if err != nil {
		a.logger.Error(ctx, "Redis snapshot offer failed", "key", lockKey, "error", err.Error())
		return domain.SnapshotOffer{}, fmt.Errorf("snapshot offer for key '%s' failed: %w", lockKey, err)
	}
	if len(res) != 2 {
		return domain.SnapshotOffer{}, fmt.Errorf("snapshot offer for key '%s': unexpected reply %v", lockKey, res)
	}

	offer := domain.SnapshotOffer{WriteNow: res[0] == 1}
	if !offer.WriteNow {
		offer.RetryAfter = retryAfter(res[1], window)
	}
	a.logger.Debug(ctx, "Snapshot offered", "key", lockKey, "holder", a.holder, "window", window.String(),
		"write_now", offer.WriteNow, "retry_after", offer.RetryAfter.String())
	return offer, nil
}

// ClaimPending takes the pending snapshot once the window has closed.
func (a *SnapshotThrottleAdapter) ClaimPending(ctx context.Context, pageID string, window time.Duration) ([]byte, time.Duration, error) {
	lockKey := rediskeys.CRDTSnapshotLockKey(pageID)
	res, err := claimScript.Run(ctx, a.redisClient,
		[]string{lockKey, rediskeys.CRDTSnapshotPendingKey(pageID)},
		a.holder, toMillis(window),
	).Slice()
	if err != nil {
		a.logger.Error(ctx, "Redis snapshot claim failed", "key", lockKey, "error", err.Error())
		return nil, 0, fmt.Errorf("snapshot claim for key '%s' failed: %w", lockKey, err)
	}
	if len(res) == 0 {
		return nil, 0, fmt.Errorf("snapshot claim for key '%s': empty reply", lockKey)
	}

	switch res[0] {
	case int64(0):
		return nil, 0, nil
	case int64(1):
		ms, _ := res[1].(int64)
		return nil, retryAfter(ms, window), nil
	case int64(2):
		state, ok := res[1].(string)
		if !ok {
			return nil, 0, fmt.Errorf("snapshot claim for key '%s': unexpected state %T", lockKey, res[1])
		}
		a.logger.Debug(ctx, "Pending snapshot claimed", "key", lockKey, "holder", a.holder)
		return []byte(state), 0, nil
	}
	return nil, 0, fmt.Errorf("snapshot claim for key '%s': unexpected reply %v", lockKey, res)
}

// TakePending removes the pending snapshot without looking at the window.
func (a *SnapshotThrottleAdapter) TakePending(ctx context.Context, pageID string) ([]byte, error) {
	key := rediskeys.CRDTSnapshotPendingKey(pageID)
	state, err := takeScript.Run(ctx, a.redisClient, []string{key}).Text()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		a.logger.Error(ctx, "Redis pending snapshot take failed", "key", key, "error", err.Error())
		return nil, fmt.Errorf("take pending snapshot '%s' failed: %w", key, err)
	}
	return []byte(state), nil
}

func toMillis(d time.Duration) int64 {
	return max(d.Milliseconds(), 1)
}

// retryAfter falls back to a full window when the lock reports no expiry.
func retryAfter(ms int64, window time.Duration) time.Duration {
	if ms <= 0 {
		return window
	}
	return time.Duration(ms) * time.Millisecond
}
