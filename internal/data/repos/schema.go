package repos

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the discovery schema and tables if they do not
// exist. Ran once at worker startup; every statement is idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS discovery`,

		`CREATE TABLE IF NOT EXISTS discovery.scan_snapshots (
			key               TEXT PRIMARY KEY,
			payload           JSONB NOT NULL,
			source            TEXT NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL,
			pre_filter_count  INTEGER NOT NULL DEFAULT 0,
			post_filter_count INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS discovery.exposure_ledger (
			trade_date          TEXT PRIMARY KEY,
			daily_notional_used DOUBLE PRECISION NOT NULL,
			per_symbol          JSONB NOT NULL,
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS discovery.heartbeat (
			id         INTEGER PRIMARY KEY,
			sources    JSONB NOT NULL,
			checked_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS discovery.bracket_orders (
			id                TEXT PRIMARY KEY,
			symbol            TEXT NOT NULL,
			notional          DOUBLE PRECISION NOT NULL,
			limit_price       DOUBLE PRECISION NOT NULL,
			take_profit_price DOUBLE PRECISION NOT NULL,
			stop_price        DOUBLE PRECISION NOT NULL,
			leg               INTEGER NOT NULL,
			status            TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL,
			filled_at         TIMESTAMPTZ
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bracket_orders_symbol_date
			ON discovery.bracket_orders (symbol, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
