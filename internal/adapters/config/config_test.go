package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const testConfigYAML = `
server:
  http_port: 8181
database:
  url: postgres://from-file/db
redis:
  address: redis-from-file:6379
auth:
  session_cookie_names:
    - custom-session
cache:
  medium_ttl_seconds: 120
`

func writeConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(testConfigYAML), 0o600))
	return dir
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestNewViperProvider_FileAndDefaults(t *testing.T) {
	dir := writeConfigDir(t)
	chdir(t, t.TempDir())
	t.Setenv("VIPER_CONFIG_PATH", dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := NewViperProvider(ctx, zap.NewNop())
	require.NoError(t, err)
	cfg := p.Get()

	assert.Equal(t, 8181, cfg.Server.HTTPPort)
	assert.Equal(t, 9090, cfg.Server.GRPCPort, "unset keys keep their defaults")
	assert.Equal(t, "postgres://from-file/db", cfg.Database.URL)
	assert.Equal(t, "redis-from-file:6379", cfg.Redis.Address)
	assert.Equal(t, []string{"custom-session"}, cfg.Auth.SessionCookieNames)
	assert.Equal(t, "writeshare", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 10, cfg.App.CRDTSnapshotThrottleSeconds)

	ttl := cfg.Cache.TTLPolicy()
	assert.Equal(t, 2*time.Minute, ttl.Medium)
	assert.Equal(t, time.Minute, ttl.Short)
	assert.Equal(t, 24*time.Hour, ttl.VeryLong)
}

func TestNewViperProvider_EnvOverridesFile(t *testing.T) {
	dir := writeConfigDir(t)
	chdir(t, t.TempDir())
	t.Setenv("VIPER_CONFIG_PATH", dir)
	t.Setenv("WRITESHARE_SERVER_HTTP_PORT", "9999")
	t.Setenv("WRITESHARE_REDIS_ADDRESS", "redis-from-env:6379")
	t.Setenv("WRITESHARE_AUTH_ADMIN_API_KEY", "secret-key")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := NewViperProvider(ctx, zap.NewNop())
	require.NoError(t, err)
	cfg := p.Get()

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "redis-from-env:6379", cfg.Redis.Address)
	assert.Equal(t, "secret-key", cfg.Auth.AdminAPIKey)
}

func TestNewViperProvider_NoFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("VIPER_CONFIG_PATH", t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := NewViperProvider(ctx, zap.NewNop())
	require.NoError(t, err)
	cfg := p.Get()

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, []string{"__Secure-next-auth.session-token", "next-auth.session-token"}, cfg.Auth.SessionCookieNames)
	assert.Equal(t, domain.DefaultTTLPolicy(), cfg.Cache.TTLPolicy())
}

func TestNewViperProvider_LoadsDotEnv(t *testing.T) {
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, ".env"), []byte("WRITESHARE_AUTH_COLLAB_SECRET=from-dotenv\n"), 0o600))
	chdir(t, work)
	t.Setenv("VIPER_CONFIG_PATH", t.TempDir())
	// Registered so t.Setenv's cleanup restores the variable godotenv sets.
	t.Setenv("WRITESHARE_AUTH_COLLAB_SECRET", "")
	require.NoError(t, os.Unsetenv("WRITESHARE_AUTH_COLLAB_SECRET"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := NewViperProvider(ctx, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", p.Get().Auth.CollabSecret)
}

func TestCacheConfig_TTLPolicyIgnoresNonPositive(t *testing.T) {
	c := CacheConfig{ShortTTLSeconds: -5, LongTTLSeconds: 7200}
	p := c.TTLPolicy()
	assert.Equal(t, time.Minute, p.Short)
	assert.Equal(t, 2*time.Hour, p.Long)
}

func TestNewStaticProvider(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "debug"}}
	p := NewStaticProvider(cfg)
	assert.Same(t, cfg, p.Get())
}
