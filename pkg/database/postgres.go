package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/marketdash/pkg/config"
)

// ErrNotConfigured is returned when DATABASE_URL is empty.
// The bar store is optional: callers treat this as "run without persistence".
var ErrNotConfigured = errors.New("database not configured")

const defaultConnectTimeout = 5 * time.Second

// DB owns the pgx pool backing the bar store
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	pool *pgxpool.Pool
}

// New opens the pool and pings it within Database.ConnectTimeout
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	if !cfg.Database.Enabled() {
		return nil, ErrNotConfigured
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	timeout := cfg.Database.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Pool returns the underlying pool for repositories
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the pool; nil-safe so optional stores can be closed unconditionally
func (db *DB) Close() {
	if db != nil && db.pool != nil {
		db.pool.Close()
	}
}
