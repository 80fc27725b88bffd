package benchmarks

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/logger"
	redisadapter "github.com/nikitalobanov12/WriteShare/internal/adapters/redis"
	"github.com/nikitalobanov12/WriteShare/internal/application"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// setupCaches starts an in-memory Redis and returns the cache facades over it.
func setupCaches(b *testing.B) (*application.Caches, *miniredis.Miniredis) {
	b.Helper()
	s := miniredis.RunT(b)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr(), MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	b.Cleanup(func() { _ = client.Close() })
	return application.NewCaches(redisadapter.NewCacheAdapter(client, logger.NewNop()), domain.DefaultTTLPolicy()), s
}
