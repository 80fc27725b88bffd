package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/pkg/contextkeys"
)

func TestZapAdapter_ContextFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newFromCore(core)

	ctx := context.WithValue(context.Background(), contextkeys.RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, "u-1")
	l.Info(ctx, "page loaded", "page_id_field", "p-9", "cached", true)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, "p-9", fields["page_id_field"])
	assert.Equal(t, true, fields["cached"])
	assert.NotContains(t, fields, "workspace_id")
}

func TestZapAdapter_MalformedPairs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newFromCore(core)

	l.Warn(context.Background(), "odd", "key", "value", 42, "x", "orphan")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "value", fields["key"])
	assert.EqualValues(t, 42, fields["invalid_key_2"])
	assert.Equal(t, "x", fields["invalid_value_3"])
	assert.Equal(t, "orphan", fields["orphan_field_4"])
}

func TestZapAdapter_With(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := newFromCore(core).With("component", "cache")

	l.Debug(context.Background(), "filtered out")
	l.Error(context.Background(), "boom")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "cache", logs.All()[0].ContextMap()["component"])
}

func TestNewZapAdapter_BadLevelFallsBackToInfo(t *testing.T) {
	l, err := NewZapAdapter(config.NewStaticProvider(&config.Config{Log: config.LogConfig{Level: "loud"}}), "writeshare")
	require.NoError(t, err)
	za, ok := l.(*ZapAdapter)
	require.True(t, ok)
	assert.False(t, za.logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, za.logger.Core().Enabled(zapcore.InfoLevel))
}
