package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mfaber/tradewatch/internal/model"
)

// GetBaselines loads the baselines for the given tickers. Tickers with
// no stored baseline are simply absent from the result.
func (s *Store) GetBaselines(ctx context.Context, tickers []string) (map[string]*model.TickerBaseline, error) {
	baselines := make(map[string]*model.TickerBaseline, len(tickers))
	if len(tickers) == 0 {
		return baselines, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ticker, window_size, sample_count, mean, stddev, counts, prev_close, last_close, last_updated
		FROM ticker_baselines
		WHERE ticker = ANY($1)
	`, tickers)
	if err != nil {
		return nil, fmt.Errorf("query baselines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b model.TickerBaseline
		if err := rows.Scan(
			&b.Ticker, &b.WindowSize, &b.SampleCount, &b.Mean, &b.Stddev,
			&b.Counts, &b.PrevClose, &b.LastClose, &b.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan baseline: %w", err)
		}
		b.LastUpdated = model.Day(b.LastUpdated)
		baselines[b.Ticker] = &b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read baselines: %w", err)
	}

	return baselines, nil
}

// UpsertBaselines writes the given baselines. Entries that were created
// but never advanced are skipped.
func (s *Store) UpsertBaselines(ctx context.Context, baselines map[string]*model.TickerBaseline) error {
	start := time.Now()

	ordered := make([]*model.TickerBaseline, 0, len(baselines))
	for _, b := range baselines {
		if b.LastUpdated.IsZero() {
			continue
		}
		ordered = append(ordered, b)
	}

	for _, chunk := range chunks(len(ordered)) {
		batch := &pgx.Batch{}
		for _, b := range ordered[chunk.lo:chunk.hi] {
			batch.Queue(`
				INSERT INTO ticker_baselines (ticker, window_size, sample_count, mean, stddev, counts, prev_close, last_close, last_updated)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (ticker) DO UPDATE SET
					window_size = EXCLUDED.window_size,
					sample_count = EXCLUDED.sample_count,
					mean = EXCLUDED.mean,
					stddev = EXCLUDED.stddev,
					counts = EXCLUDED.counts,
					prev_close = EXCLUDED.prev_close,
					last_close = EXCLUDED.last_close,
					last_updated = EXCLUDED.last_updated
			`, b.Ticker, b.WindowSize, b.SampleCount, b.Mean, b.Stddev,
				b.Counts, b.PrevClose, b.LastClose, b.LastUpdated)
		}

		if err := s.sendBatch(ctx, batch); err != nil {
			return err
		}
	}

	s.logger.Info("baselines upserted",
		"baselines", len(ordered),
		"duration", time.Since(start),
	)
	return nil
}

// CountBaselines returns how many tickers have a stored baseline.
func (s *Store) CountBaselines(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM ticker_baselines`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count baselines: %w", err)
	}
	return n, nil
}
