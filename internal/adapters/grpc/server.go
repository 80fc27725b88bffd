package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
	"github.com/nikitalobanov12/WriteShare/pkg/safego"
)

const (
	defaultCheckInterval = 15 * time.Second
	pingTimeout          = 2 * time.Second
)

// Server serves grpc.health.v1.Health. The overall status is SERVING while
// every dependency answers its ping.
type Server struct {
	gsrv         *grpc.Server
	health       *health.Server
	logger       domain.Logger
	cfgProvider  config.Provider
	dependencies map[string]domain.Pinger
	appCtx       context.Context
	cancelCtx    context.CancelFunc
}

// NewServer creates a new gRPC server instance.
func NewServer(appCtx context.Context, logger domain.Logger, cfgProvider config.Provider, dependencies map[string]domain.Pinger) *Server {
	gsrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(gsrv, healthSrv)
	reflection.Register(gsrv)

	serverLifecycleCtx, serverLifecycleCancel := context.WithCancel(appCtx)
	s := &Server{
		gsrv:         gsrv,
		health:       healthSrv,
		logger:       logger,
		cfgProvider:  cfgProvider,
		dependencies: dependencies,
		appCtx:       serverLifecycleCtx,
		cancelCtx:    serverLifecycleCancel,
	}
	s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Start listens on server.grpc_port and begins serving and health polling.
func (s *Server) Start() error {
	grpcPort := s.cfgProvider.Get().Server.GRPCPort
	if grpcPort == 0 {
		s.logger.Warn(s.appCtx, "gRPC port is not configured or is 0. gRPC server will not start.")
		return errors.New("gRPC port not configured")
	}
	addr := fmt.Sprintf(":%d", grpcPort)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// Serve serves on lis until the server context ends.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info(s.appCtx, "gRPC server starting", "address", lis.Addr().String())
	s.Refresh(s.appCtx)

	safego.Execute(s.appCtx, s.logger, "GRPCServerServe", func() {
		if err := s.gsrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			s.logger.Error(s.appCtx, "gRPC server failed to serve", "error", err.Error())
		}
		s.cancelCtx()
	})

	safego.Execute(s.appCtx, s.logger, "GRPCHealthPoller", s.pollHealth)

	safego.Execute(s.appCtx, s.logger, "GRPCServerContextWatcher", func() {
		<-s.appCtx.Done()
		s.logger.Info(context.Background(), "gRPC server context done, initiating graceful stop...")
		s.health.Shutdown()
		s.gsrv.GracefulStop()
		s.logger.Info(context.Background(), "gRPC server gracefully stopped")
	})
	return nil
}

func (s *Server) pollHealth() {
	interval := time.Duration(s.cfgProvider.Get().App.HealthCheckIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.appCtx.Done():
			return
		case <-ticker.C:
			s.Refresh(s.appCtx)
		}
	}
}

// Refresh pings every dependency and updates the serving status.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, p := range s.dependencies {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := p.Ping(pingCtx)
		cancel()
		if err != nil {
			s.logger.Warn(ctx, "Health dependency unavailable", "dependency", name, "error", err.Error())
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.setStatus(status)
	return status
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(healthpb.Health_ServiceDesc.ServiceName, status)
}

// GracefulStop cancels the server context, which triggers the graceful stop.
func (s *Server) GracefulStop() {
	s.cancelCtx()
}
