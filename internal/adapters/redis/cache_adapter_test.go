package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/logger"
)

type cachedDoc struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newTestAdapter(t *testing.T) (*CacheAdapter, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:        s.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheAdapter(client, logger.NewNop()), s
}

func TestCacheAdapter_RoundTrip(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	in := cachedDoc{
		ID:        "p1",
		Title:     "Roadmap",
		Tags:      []string{"q3", "plan"},
		Score:     4.5,
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.True(t, a.Set(ctx, "page:p1:details", in, time.Minute))

	var out cachedDoc
	require.True(t, a.Get(ctx, "page:p1:details", &out))
	assert.Equal(t, in, out)
}

func TestCacheAdapter_GetMissingKey(t *testing.T) {
	a, _ := newTestAdapter(t)
	var out cachedDoc
	assert.False(t, a.Get(context.Background(), "page:none", &out))
}

func TestCacheAdapter_SetAppliesTTL(t *testing.T) {
	a, s := newTestAdapter(t)
	ctx := context.Background()

	require.True(t, a.Set(ctx, "user:1", map[string]string{"id": "1"}, 60*time.Second))
	assert.Equal(t, 60*time.Second, s.TTL("user:1"))

	s.FastForward(61 * time.Second)
	var out map[string]string
	assert.False(t, a.Get(ctx, "user:1", &out))
}

func TestCacheAdapter_CorruptPayloadIsMiss(t *testing.T) {
	a, s := newTestAdapter(t)
	require.NoError(t, s.Set("post:42", "{not json"))

	var out cachedDoc
	assert.False(t, a.Get(context.Background(), "post:42", &out))
}

func TestCacheAdapter_UnmarshalableValue(t *testing.T) {
	a, s := newTestAdapter(t)
	assert.False(t, a.Set(context.Background(), "post:1", make(chan int), time.Minute))
	assert.False(t, s.Exists("post:1"))
}

func TestCacheAdapter_DeleteTwice(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()
	require.True(t, a.Set(ctx, "post:42", "v", time.Minute))

	assert.True(t, a.Delete(ctx, "post:42"))
	assert.False(t, a.Delete(ctx, "post:42"))

	var out string
	assert.False(t, a.Get(ctx, "post:42", &out))
}

func TestCacheAdapter_DeletePattern(t *testing.T) {
	a, s := newTestAdapter(t)
	ctx := context.Background()

	for i := 0; i < 1200; i++ {
		require.NoError(t, s.Set(fmt.Sprintf("page:%d:workspace:7", i), "x"))
	}
	require.NoError(t, s.Set("page:1:workspace:8", "x"))
	require.NoError(t, s.Set("workspace:7", "x"))

	n := a.DeletePattern(ctx, "page:*:workspace:7")
	assert.Equal(t, int64(1200), n)
	assert.True(t, s.Exists("page:1:workspace:8"))
	assert.True(t, s.Exists("workspace:7"))

	assert.Equal(t, int64(0), a.DeletePattern(ctx, "page:*:workspace:7"))
}

func TestCacheAdapter_BackendDownDegrades(t *testing.T) {
	a, s := newTestAdapter(t)
	ctx := context.Background()
	require.True(t, a.Set(ctx, "user:1:workspaces", []string{"w"}, time.Minute))

	s.Close()

	var out []string
	assert.False(t, a.Get(ctx, "user:1:workspaces", &out))
	assert.False(t, a.Set(ctx, "user:1:workspaces", []string{"w"}, time.Minute))
	assert.False(t, a.Delete(ctx, "user:1:workspaces"))
	assert.Equal(t, int64(0), a.DeletePattern(ctx, "user:1:*"))
	assert.Error(t, a.Ping(ctx))
}

func TestNewCacheAdapter_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() { NewCacheAdapter(nil, logger.NewNop()) })
}
