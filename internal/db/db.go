// Package db opens the PostgreSQL connection pool and checks that the
// collaboration schema has been migrated.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// ErrSchemaMissing is returned when a required table does not exist.
var ErrSchemaMissing = errors.New("database schema is not migrated")

// RequiredTables are created by migrations/000001_create_collab_tables.
var RequiredTables = []string{"collab_projects", "collab_profiles"}

// tableExistsQuery reports whether a table is visible on the search path.
const tableExistsQuery = "SELECT to_regclass($1) IS NOT NULL"

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// DefaultPoolConfig suits a single API instance.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// Open connects to dsn, sizes the pool and verifies the connection and
// schema. The pool is closed on any failure.
func Open(ctx context.Context, dsn string, cfg PoolConfig) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := Prepare(ctx, conn, cfg); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Prepare applies cfg to an open pool, pings it and checks the schema.
func Prepare(ctx context.Context, conn *sql.DB, cfg PoolConfig) error {
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.PingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
	}
	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return CheckSchema(ctx, conn)
}

// CheckSchema returns ErrSchemaMissing naming the first absent table.
func CheckSchema(ctx context.Context, conn *sql.DB) error {
	for _, table := range RequiredTables {
		var exists bool
		if err := conn.QueryRowContext(ctx, tableExistsQuery, table).Scan(&exists); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("%w: table %s not found", ErrSchemaMissing, table)
		}
	}
	return nil
}
