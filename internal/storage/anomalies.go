package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mfaber/tradewatch/internal/model"
)

// UpsertAnomalies writes a day's anomalies. Re-detection overwrites the
// scores but keeps the original created_at.
func (s *Store) UpsertAnomalies(ctx context.Context, anomalies []model.AnomalyRecord) error {
	start := time.Now()

	for _, chunk := range chunks(len(anomalies)) {
		batch := &pgx.Batch{}
		for _, a := range anomalies[chunk.lo:chunk.hi] {
			batch.Queue(`
				INSERT INTO anomalies (ticker, date, trade_count, avg_trades, std_trades, z_score, close_price, price_diff, volume, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				ON CONFLICT (ticker, date) DO UPDATE SET
					trade_count = EXCLUDED.trade_count,
					avg_trades = EXCLUDED.avg_trades,
					std_trades = EXCLUDED.std_trades,
					z_score = EXCLUDED.z_score,
					close_price = EXCLUDED.close_price,
					price_diff = EXCLUDED.price_diff,
					volume = EXCLUDED.volume
			`, a.Ticker, a.Date, a.TradeCount, a.AvgTrades, a.StdTrades,
				a.ZScore, a.ClosePrice, a.PriceDiff, a.Volume, a.CreatedAt)
		}

		if err := s.sendBatch(ctx, batch); err != nil {
			return err
		}
	}

	s.logger.Info("anomalies upserted",
		"anomalies", len(anomalies),
		"duration", time.Since(start),
	)
	return nil
}

// AnomaliesByDate returns the anomalies recorded for a date, highest
// z-score first.
func (s *Store) AnomaliesByDate(ctx context.Context, date time.Time) ([]model.AnomalyRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, date, trade_count, avg_trades, std_trades, z_score, close_price, price_diff, volume, created_at
		FROM anomalies
		WHERE date = $1
		ORDER BY z_score DESC, ticker
	`, model.Day(date))
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	return scanAnomalies(rows)
}

// TopAnomalies returns the highest z-score anomalies on record.
func (s *Store) TopAnomalies(ctx context.Context, limit int) ([]model.AnomalyRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, date, trade_count, avg_trades, std_trades, z_score, close_price, price_diff, volume, created_at
		FROM anomalies
		ORDER BY z_score DESC, ticker
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top anomalies: %w", err)
	}
	defer rows.Close()

	return scanAnomalies(rows)
}

func scanAnomalies(rows pgx.Rows) ([]model.AnomalyRecord, error) {
	var anomalies []model.AnomalyRecord
	for rows.Next() {
		var a model.AnomalyRecord
		if err := rows.Scan(
			&a.Ticker, &a.Date, &a.TradeCount, &a.AvgTrades, &a.StdTrades,
			&a.ZScore, &a.ClosePrice, &a.PriceDiff, &a.Volume, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		a.Date = model.Day(a.Date)
		anomalies = append(anomalies, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read anomalies: %w", err)
	}
	return anomalies, nil
}

// Stats summarizes the stored pipeline state. The anomaly count for
// "today" is relative to the latest anomaly date, not the wall clock.
func (s *Store) Stats(ctx context.Context) (*model.PipelineStats, error) {
	var (
		latest       *time.Time
		totalTickers int
		totalAnoms   int
		anomsLatest  int
	)

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT max(date) FROM anomalies),
			(SELECT count(DISTINCT ticker) FROM daily_aggregates),
			(SELECT count(*) FROM anomalies),
			(SELECT count(*) FROM anomalies WHERE date = (SELECT max(date) FROM anomalies))
	`).Scan(&latest, &totalTickers, &totalAnoms, &anomsLatest)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	stats := &model.PipelineStats{
		TotalTickersTracked: totalTickers,
		TotalAnomalies:      totalAnoms,
		AnomaliesToday:      anomsLatest,
	}
	if latest != nil {
		stats.LatestDate = model.Day(*latest)
	}
	return stats, nil
}
