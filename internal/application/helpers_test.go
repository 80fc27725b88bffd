package application

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/logger"
	redisadapter "github.com/nikitalobanov12/WriteShare/internal/adapters/redis"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// newTestCaches returns facades over a fresh miniredis. The client does not
// retry so tests that close the server fail fast.
func newTestCaches(t *testing.T) (*Caches, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{
		Addr:        s.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	store := redisadapter.NewCacheAdapter(client, logger.NewNop())
	return NewCaches(store, domain.DefaultTTLPolicy()), s
}

func seedKeys(t *testing.T, s *miniredis.Miniredis, keys ...string) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, s.Set(k, `"seed"`))
	}
}

func strPtr(s string) *string { return &s }
