package domain

import (
	"context"
)

// Logger defines the interface for logging within the application.
// All logging methods take a context.Context first so request-scoped values
// (request_id, user_id, ...) end up on every line.
// The variadic `fields` argument is a flat list of key/value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
	Fatal(ctx context.Context, msg string, fields ...any) // Fatal calls os.Exit(1) after logging

	// With creates a child logger with the provided structured context fields.
	With(fields ...any) Logger
}
