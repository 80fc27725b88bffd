package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const uniqueViolation = "23505"

// Repository is the relational store behind every domain repository and the
// session identity provider.
type Repository struct {
	pool   *pgxpool.Pool
	logger domain.Logger
}

// NewPool opens a pgx pool using the database section of the config.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger domain.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	logger.Info(ctx, "Postgres pool initialized", "max_conns", poolCfg.MaxConns)
	return pool, nil
}

// NewRepository wraps an open pool.
func NewRepository(pool *pgxpool.Pool, logger domain.Logger) *Repository {
	return &Repository{pool: pool, logger: logger}
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (r *Repository) Close() {
	r.pool.Close()
}

func (r *Repository) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies every pending migration. It opens its own *sql.DB
// through the pgx stdlib driver, separate from the pool.
func RunMigrations(ctx context.Context, dsn string, logger domain.Logger) error {
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("sql.Open pgx: %w", err)
	}
	defer sqldb.Close()

	driver, err := migratepg.WithInstance(sqldb, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("postgres migrate driver: %w", err)
	}

	src, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate.NewWithInstance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info(ctx, "No new migrations to apply")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info(ctx, "Migrations applied")
	return nil
}

// mapError translates driver errors into domain sentinels.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s already exists", domain.ErrConflict, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
