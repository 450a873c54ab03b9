// Package postgres is the PostgreSQL-backed save store for encounter
// snapshots. Pool owns the pgx connection pool; SnapshotRepository reads and
// writes the encounter_snapshots table created by the migrations directory.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/config"
)

// ErrSchemaNotMigrated is returned by Health when the database is reachable
// but the snapshot table has not been created.
var ErrSchemaNotMigrated = errors.New("encounter_snapshots table missing; run cmd/migrate")

// Pool wraps a pgx connection pool used by the snapshot store.
type Pool struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPool connects to the save store described by cfg.
//
// Precondition: cfg must contain valid database connection parameters; logger must be non-nil.
// Postcondition: Returns a pinged Pool or a non-nil error. No connection is
// left open on error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Pool, error) {
	start := time.Now()
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging snapshot store at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("snapshot store connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Pool{pool: pool, logger: logger}, nil
}

// Health checks that the database answers within timeout and that the
// snapshot table exists.
//
// Postcondition: Returns nil, a wrapped connection error, or ErrSchemaNotMigrated.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var present bool
	err := p.pool.QueryRow(ctx, `SELECT to_regclass('encounter_snapshots') IS NOT NULL`).Scan(&present)
	if err != nil {
		return fmt.Errorf("snapshot store health: %w", err)
	}
	if !present {
		p.logger.Warn("snapshot store schema missing")
		return ErrSchemaNotMigrated
	}
	st := p.pool.Stat()
	p.logger.Debug("snapshot store healthy",
		zap.Int32("total_conns", st.TotalConns()),
		zap.Int32("idle_conns", st.IdleConns()),
	)
	return nil
}

// Snapshots returns a repository over this pool.
func (p *Pool) Snapshots() *SnapshotRepository {
	return NewSnapshotRepository(p.pool)
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
	p.logger.Debug("snapshot store closed")
}

// DB returns the underlying pgxpool.Pool.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
