// Package db provides PostgreSQL persistence for the final results of insight runs.
package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// psql builds PostgreSQL queries with $n placeholders
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates the history tables if they do not exist
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS insight_runs (
	id                  UUID PRIMARY KEY,
	label               TEXT NOT NULL DEFAULT '',
	original_count      INTEGER NOT NULL,
	filtered_count      INTEGER NOT NULL,
	post_filtered_count INTEGER NOT NULL,
	processed_count     INTEGER NOT NULL,
	hydration_failed    INTEGER NOT NULL DEFAULT 0,
	filter_reasons      JSONB NOT NULL DEFAULT '{}'::jsonb,
	duration_ms         BIGINT NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS insights (
	run_id   UUID NOT NULL REFERENCES insight_runs(id) ON DELETE CASCADE,
	rank     INTEGER NOT NULL,
	score    DOUBLE PRECISION NOT NULL,
	content  TEXT NOT NULL,
	author   TEXT NOT NULL,
	reason   TEXT NOT NULL,
	features JSONB NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_insight_runs_created_at ON insight_runs (created_at DESC);
`
