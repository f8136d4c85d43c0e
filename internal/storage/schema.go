package storage

import (
	"context"
	"fmt"
)

// schemaStatements create the pipeline's tables and indexes. Statements
// are idempotent so every start can run them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS daily_aggregates (
		ticker      TEXT NOT NULL,
		date        DATE NOT NULL,
		open        DOUBLE PRECISION NOT NULL DEFAULT 0,
		high        DOUBLE PRECISION NOT NULL DEFAULT 0,
		low         DOUBLE PRECISION NOT NULL DEFAULT 0,
		close       DOUBLE PRECISION NOT NULL DEFAULT 0,
		volume      BIGINT NOT NULL DEFAULT 0,
		trade_count BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (ticker, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_aggregates_date ON daily_aggregates (date)`,

	`CREATE TABLE IF NOT EXISTS ticker_baselines (
		ticker       TEXT PRIMARY KEY,
		window_size  INT NOT NULL,
		sample_count INT NOT NULL,
		mean         DOUBLE PRECISION NOT NULL,
		stddev       DOUBLE PRECISION NOT NULL,
		counts       BIGINT[] NOT NULL,
		prev_close   DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_close   DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_updated DATE NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS anomalies (
		ticker      TEXT NOT NULL,
		date        DATE NOT NULL,
		trade_count BIGINT NOT NULL,
		avg_trades  DOUBLE PRECISION NOT NULL,
		std_trades  DOUBLE PRECISION NOT NULL,
		z_score     DOUBLE PRECISION NOT NULL,
		close_price DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_diff  DOUBLE PRECISION,
		volume      BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (ticker, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_anomalies_date ON anomalies (date)`,
	`CREATE INDEX IF NOT EXISTS idx_anomalies_z_score ON anomalies (z_score DESC)`,
}

// EnsureSchema creates missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	s.logger.Debug("schema ensured", "statements", len(schemaStatements))
	return nil
}
