package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nikitalobanov12/WriteShare/internal/bootstrap"
	"github.com/nikitalobanov12/WriteShare/pkg/contextkeys"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "app-main")

	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// The structured logger may not exist yet.
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	runErr := app.Run(ctx)
	cleanup()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Application run failed: %v\n", runErr)
		os.Exit(1)
	}
}
