package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// One statement per entry: pgx's extended protocol does not accept
// multi-statement strings.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id         SERIAL PRIMARY KEY,
		url        TEXT UNIQUE NOT NULL,
		name       TEXT NOT NULL,
		domain     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS price_history (
		id          SERIAL PRIMARY KEY,
		product_id  INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		price       DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_history_product
		ON price_history (product_id, recorded_at DESC)`,
}

// Connect builds a pgx pool, verifies the connection and ensures the schema
// exists. The caller owns the returned pool and must Close it on shutdown.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
	}

	return pool, nil
}
