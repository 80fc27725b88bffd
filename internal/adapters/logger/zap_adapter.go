package logger

import (
	"context"
	"fmt"
	"os"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/contextkeys"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter implements the domain.Logger interface using Zap.
type ZapAdapter struct {
	logger *zap.Logger
}

// NewZapAdapter creates a new ZapAdapter.
// It configures Zap based on the provided application configuration.
func NewZapAdapter(cfgProvider config.Provider, serviceName string) (domain.Logger, error) {
	appConfig := cfgProvider.Get()
	logLevel := appConfig.Log.Level // Get log level from config

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(logLevel)); err != nil {
		zapLevel = zapcore.InfoLevel // Default to InfoLevel if parsing fails
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder, // UTC RFC3339Nano: 2025-05-21T10:30:05.123456789Z
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// Configure console output for different levels
	// Errors, Fatals to stderr; Info, Debug, Warn to stdout
	infoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapLevel && lvl < zapcore.ErrorLevel
	})
	errorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapLevel && lvl >= zapcore.ErrorLevel
	})

	consoleInfo := zapcore.Lock(os.Stdout)
	consoleErrors := zapcore.Lock(os.Stderr)

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), consoleInfo, infoLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), consoleErrors, errorLevel),
	)

	zapLogger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)) // Add stacktrace for ErrorLevel and above

	// Add service_name as a static field to all logs from this logger instance
	zapLogger = zapLogger.With(zap.String("service", serviceName))

	return &ZapAdapter{logger: zapLogger}, nil
}

// contextFieldKeys are copied from the context onto every log line when present.
var contextFieldKeys = []interface{ String() string }{
	contextkeys.RequestIDKey,
	contextkeys.UserIDKey,
	contextkeys.WorkspaceIDKey,
	contextkeys.PageIDKey,
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() domain.Logger {
	return &ZapAdapter{logger: zap.NewNop()}
}

func (za *ZapAdapter) extractFieldsFromContext(ctx context.Context, additionalFields []any) []zap.Field {
	fields := make([]zap.Field, 0, len(additionalFields)/2+len(contextFieldKeys))

	if ctx != nil {
		for _, key := range contextFieldKeys {
			if v, ok := ctx.Value(key).(string); ok && v != "" {
				fields = append(fields, zap.String(key.String(), v))
			}
		}
	}

	return append(fields, pairsToFields(additionalFields)...)
}

// pairsToFields converts a flat key/value list into zap fields. A non-string
// key or a trailing orphan value is kept under a placeholder name instead of dropped.
func pairsToFields(args []any) []zap.Field {
	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			fields = append(fields, zap.Any(fmt.Sprintf("orphan_field_%d", i), args[i]))
			break
		}
		key, ok := args[i].(string)
		if !ok {
			fields = append(fields, zap.Any(fmt.Sprintf("invalid_key_%d", i), args[i]))
			key = fmt.Sprintf("invalid_value_%d", i+1)
		}
		fields = append(fields, zap.Any(key, args[i+1]))
	}
	return fields
}

func (za *ZapAdapter) Debug(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	fields := za.extractFieldsFromContext(ctx, args)
	za.logger.Debug(msg, fields...)
}

func (za *ZapAdapter) Info(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.InfoLevel) {
		return
	}
	fields := za.extractFieldsFromContext(ctx, args)
	za.logger.Info(msg, fields...)
}

func (za *ZapAdapter) Warn(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.WarnLevel) {
		return
	}
	fields := za.extractFieldsFromContext(ctx, args)
	za.logger.Warn(msg, fields...)
}

func (za *ZapAdapter) Error(ctx context.Context, msg string, args ...any) {
	if !za.logger.Core().Enabled(zapcore.ErrorLevel) {
		return
	}
	fields := za.extractFieldsFromContext(ctx, args)
	za.logger.Error(msg, fields...)
}

func (za *ZapAdapter) Fatal(ctx context.Context, msg string, args ...any) {
	// Fatal should always log, regardless of core enablement check for other levels
	fields := za.extractFieldsFromContext(ctx, args)
	za.logger.Fatal(msg, fields...) // Zap's Fatal logs and then calls os.Exit(1)
}

func (za *ZapAdapter) With(args ...any) domain.Logger {
	return &ZapAdapter{logger: za.logger.With(pairsToFields(args)...)}
}

func newFromCore(core zapcore.Core) *ZapAdapter {
	return &ZapAdapter{logger: zap.New(core)}
}
