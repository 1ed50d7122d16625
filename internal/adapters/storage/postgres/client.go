// Package postgres implements the storage ports on PostgreSQL with pgx.
//
// Quote status changes are a single UPDATE guarded by the expected status,
// and idempotency reservations are a single INSERT ... ON CONFLICT, so the
// database provides every atomicity guarantee the service relies on.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jsamuelsen/freight-quote-service/internal/domain"
	"github.com/jsamuelsen/freight-quote-service/internal/ports"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Config holds pool settings.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

var _ ports.HealthChecker = (*DB)(nil)

// New opens a pool. Zero pool sizes keep the pgx defaults.
func New(ctx context.Context, cfg Config) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	return nil
}

// Close closes the pool.
func (db *DB) Close() { db.Pool.Close() }

// Name implements ports.HealthChecker.
func (db *DB) Name() string { return "postgres" }

// Check pings the database.
func (db *DB) Check(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// mapError translates driver errors into domain errors. Context errors are
// returned unchanged so callers can tell cancellation from outages.
func mapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return domain.NewConflictError(entity, id, "already exists")
		}

		return fmt.Errorf("postgres %s: %w", pgErr.Code, err)
	}

	return domain.NewUnavailableError("postgres", err.Error())
}
