package safego

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// Execute runs fn in a new goroutine, recovering and logging any panic with a stack trace.
func Execute(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) {
	go run(ctx, logger, goroutineName, fn)
}

// ExecuteTracked is Execute with the goroutine registered on wg.
func ExecuteTracked(ctx context.Context, logger domain.Logger, wg *sync.WaitGroup, goroutineName string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		run(ctx, logger, goroutineName, fn)
	}()
}

func run(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			// the goroutine may outlive ctx; logging must still work
			logCtx := ctx
			if ctx.Err() != nil {
				logCtx = context.Background()
			}
			logger.Error(logCtx, "Panic recovered in goroutine",
				"goroutine", goroutineName,
				"panic_info", fmt.Sprintf("%v", r),
				"stacktrace", string(debug.Stack()),
			)
		}
	}()
	fn()
}
