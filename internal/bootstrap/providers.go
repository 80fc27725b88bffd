package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	appgrpc "github.com/nikitalobanov12/WriteShare/internal/adapters/grpc"
	apphttp "github.com/nikitalobanov12/WriteShare/internal/adapters/http"
	"github.com/nikitalobanov12/WriteShare/internal/adapters/logger"
	"github.com/nikitalobanov12/WriteShare/internal/adapters/middleware"
	appnats "github.com/nikitalobanov12/WriteShare/internal/adapters/nats"
	"github.com/nikitalobanov12/WriteShare/internal/adapters/postgres"
	appredis "github.com/nikitalobanov12/WriteShare/internal/adapters/redis"
	wsadapter "github.com/nikitalobanov12/WriteShare/internal/adapters/websocket"
	"github.com/nikitalobanov12/WriteShare/internal/application"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for config initialization.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	logger, err := zap.NewProduction()
	if err != nil {
		logger, err = zap.NewDevelopment()
		if err != nil {
			logger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger, falling back to example: %v\n", err)
		}
	}

	cleanup := func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return logger, cleanup, nil
}

// App holds the long-running servers and the adapters they start and stop.
type App struct {
	configProvider config.Provider
	logger         domain.Logger
	httpServer     *http.Server
	grpcServer     *appgrpc.Server
	natsAdapter    *appnats.Adapter
	connections    *application.ConnectionRegistry
	pages          *application.PageService
}

// NewApp is the constructor for App.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	server *http.Server,
	grpcSrv *appgrpc.Server,
	natsAdapter *appnats.Adapter,
	connections *application.ConnectionRegistry,
	pages *application.PageService,
) (*App, func(), error) {
	app := &App{
		configProvider: cfgProvider,
		logger:         appLogger,
		httpServer:     server,
		grpcServer:     grpcSrv,
		natsAdapter:    natsAdapter,
		connections:    connections,
		pages:          pages,
	}
	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
		if app.grpcServer != nil {
			app.grpcServer.GracefulStop()
		}
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration.
func ConfigProvider(appCtx context.Context, logger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, logger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	return logger.NewZapAdapter(cfgProvider, cfgProvider.Get().App.ServiceName)
}

// RedisClientProvider provides a Redis client and a cleanup function.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	appCfg := cfgProvider.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     appCfg.Redis.Address,
		Password: appCfg.Redis.Password,
		DB:       appCfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", appCfg.Redis.Address)
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", appCfg.Redis.Address, err)
	}
	cleanup := func() {
		_ = client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", appCfg.Redis.Address)
	return client, cleanup, nil
}

// PostgresPoolProvider migrates the schema when configured to and opens the pool.
func PostgresPoolProvider(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*pgxpool.Pool, func(), error) {
	dbCfg := cfgProvider.Get().Database
	if dbCfg.MigrateOnStart {
		if err := postgres.RunMigrations(ctx, dbCfg.URL, appLogger); err != nil {
			return nil, nil, err
		}
	}
	pool, err := postgres.NewPool(ctx, dbCfg, appLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Postgres pool: %w", err)
	}
	cleanup := func() {
		pool.Close()
		appLogger.Info(context.Background(), "Postgres pool closed")
	}
	return pool, cleanup, nil
}

// CachesProvider builds the entity cache facades with the configured TTL tiers.
func CachesProvider(store domain.CacheStore, cfgProvider config.Provider) *application.Caches {
	return application.NewCaches(store, cfgProvider.Get().Cache.TTLPolicy())
}

// SnapshotThrottleProvider identifies this pod as the lock holder.
func SnapshotThrottleProvider(redisClient *redis.Client, cfgProvider config.Provider, appLogger domain.Logger) domain.SnapshotThrottle {
	return appredis.NewSnapshotThrottleAdapter(redisClient, appLogger, cfgProvider.Get().Server.PodID)
}

// NatsAdapterProvider connects to NATS and ensures the events stream.
func NatsAdapterProvider(ctx context.Context, cfgProvider config.Provider, hub *appnats.Hub, appLogger domain.Logger) (*appnats.Adapter, func(), error) {
	return appnats.NewAdapter(ctx, cfgProvider, hub, appLogger)
}

// GRPCServerProvider serves health for Postgres and Redis.
func GRPCServerProvider(appCtx context.Context, appLogger domain.Logger, cfgProvider config.Provider, repo *postgres.Repository, cache *appredis.CacheAdapter) *appgrpc.Server {
	return appgrpc.NewServer(appCtx, appLogger, cfgProvider, map[string]domain.Pinger{
		"postgres": repo,
		"redis":    cache,
	})
}

// HTTPServeMuxProvider mounts every route: the API, the event stream, admin
// cache invalidation and the ops endpoints.
func HTTPServeMuxProvider(
	ctx context.Context,
	cfgProvider config.Provider,
	appLogger domain.Logger,
	api *apphttp.APIHandlers,
	wsRouter *wsadapter.Router,
	invalidator *application.Invalidator,
	repo *postgres.Repository,
	cache *appredis.CacheAdapter,
	natsAdapter *appnats.Adapter,
) *http.ServeMux {
	mux := http.NewServeMux()
	api.Register(mux)
	wsRouter.RegisterRoutes(ctx, mux)

	mux.Handle("POST /admin/cache/invalidate",
		middleware.AdminAPIKeyAuthMiddleware(cfgProvider, appLogger)(apphttp.InvalidateCacheHandler(invalidator, appLogger)))

	health := []apphttp.Dependency{{Name: "postgres", Pinger: repo}, {Name: "redis", Pinger: cache}}
	mux.Handle("GET /health", apphttp.HealthHandler(health, appLogger))
	mux.Handle("GET /ready", apphttp.HealthHandler(append(health, apphttp.Dependency{Name: "nats", Pinger: natsAdapter}), appLogger))
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// HTTPGracefulServerProvider wraps the mux in the middleware chain. There is
// no write timeout because event streams stay open indefinitely; handlers
// bound their own work with contexts.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux, verifier *application.SessionVerifier, appLogger domain.Logger) *http.Server {
	handler := middleware.RequestIDMiddleware(
		middleware.MetricsMiddleware(
			middleware.SessionMiddleware(verifier, cfgProvider, appLogger)(mux),
		),
	)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfgProvider.Get().Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,

	// Infrastructure
	RedisClientProvider,
	PostgresPoolProvider,
	postgres.NewRepository,
	wire.Bind(new(domain.UserRepository), new(*postgres.Repository)),
	wire.Bind(new(domain.WorkspaceRepository), new(*postgres.Repository)),
	wire.Bind(new(domain.InviteRepository), new(*postgres.Repository)),
	wire.Bind(new(domain.PageRepository), new(*postgres.Repository)),
	wire.Bind(new(domain.PostRepository), new(*postgres.Repository)),
	wire.Bind(new(domain.IdentityProvider), new(*postgres.Repository)),
	appredis.NewCacheAdapter,
	wire.Bind(new(domain.CacheStore), new(*appredis.CacheAdapter)),
	SnapshotThrottleProvider,
	appnats.NewHub,
	NatsAdapterProvider,
	wire.Bind(new(domain.EventPublisher), new(*appnats.Adapter)),
	wire.Bind(new(domain.EventSubscriber), new(*appnats.Adapter)),

	// Application services
	CachesProvider,
	application.NewInvalidator,
	application.NewSessionVerifier,
	application.NewAccessService,
	application.NewUserService,
	application.NewWorkspaceService,
	application.NewPageService,
	application.NewPostService,
	application.NewCollabService,
	application.NewConnectionRegistry,

	// Transport
	apphttp.NewAPIHandlers,
	wsadapter.NewHandler,
	wsadapter.NewRouter,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,
	GRPCServerProvider,

	NewApp,
)
