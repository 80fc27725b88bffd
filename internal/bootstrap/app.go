package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/safego"
)

const defaultShutdownTimeout = 30 * time.Second

// Run starts the event subscription and both servers, then blocks until a
// shutdown signal or ctx cancellation has been handled.
func (a *App) Run(ctx context.Context) error {
	appCfg := a.configProvider.Get().App
	a.logger.Info(ctx, "Starting application", "service_name", appCfg.ServiceName, "version", appCfg.Version)

	if err := a.natsAdapter.Start(ctx); err != nil {
		return fmt.Errorf("failed to start change event subscription: %w", err)
	}

	if err := a.grpcServer.Start(); err != nil {
		a.logger.Warn(ctx, "gRPC health server not started", "error", err.Error())
	}

	shutdownDone := make(chan struct{})
	safego.Execute(ctx, a.logger, "SignalListenerAndGracefulShutdown", func() {
		defer close(shutdownDone)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case sig := <-quit:
			a.logger.Info(context.Background(), "Shutdown signal received, initiating graceful shutdown...", "signal", sig.String())
		case <-ctx.Done():
			a.logger.Info(context.Background(), "Application context cancelled, initiating graceful shutdown...")
		}

		shutdownTimeout := defaultShutdownTimeout
		if secs := a.configProvider.Get().App.ShutdownTimeoutSeconds; secs > 0 {
			shutdownTimeout = time.Duration(secs) * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.grpcServer.GracefulStop()
		// Shutdown does not track hijacked connections.
		a.connections.CloseAll(domain.StatusGoingAway, "Server is shutting down")
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error(context.Background(), "HTTP server graceful shutdown failed", "error", err.Error())
		}
		a.logger.Info(context.Background(), "HTTP server shut down.")
		if n := a.pages.FlushPendingSnapshots(shutdownCtx); n > 0 {
			a.logger.Info(context.Background(), "Pending CRDT snapshots saved", "count", n)
		}
	})

	a.logger.Info(ctx, "HTTP server listening", "address", a.httpServer.Addr)
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error(ctx, "HTTP server ListenAndServe error", "error", err.Error())
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	<-shutdownDone

	a.logger.Info(ctx, "Application shut down gracefully.")
	return nil
}
