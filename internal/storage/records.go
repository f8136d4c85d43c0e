package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mfaber/tradewatch/internal/model"
)

// upsertChunk bounds how many statements go into one pgx batch. A full
// market day is around ten thousand rows.
const upsertChunk = 1000

// UpsertDailyRecords writes a day's records, replacing any existing row
// for the same ticker and date.
func (s *Store) UpsertDailyRecords(ctx context.Context, records []model.DailyRecord) error {
	start := time.Now()

	for _, chunk := range chunks(len(records)) {
		batch := &pgx.Batch{}
		for _, r := range records[chunk.lo:chunk.hi] {
			batch.Queue(`
				INSERT INTO daily_aggregates (ticker, date, open, high, low, close, volume, trade_count)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (ticker, date) DO UPDATE SET
					open = EXCLUDED.open,
					high = EXCLUDED.high,
					low = EXCLUDED.low,
					close = EXCLUDED.close,
					volume = EXCLUDED.volume,
					trade_count = EXCLUDED.trade_count
			`, r.Ticker, r.Date, r.Open, r.High, r.Low, r.Close, r.Volume, r.TradeCount)
		}

		if err := s.sendBatch(ctx, batch); err != nil {
			return err
		}
	}

	s.logger.Info("daily records upserted",
		"records", len(records),
		"duration", time.Since(start),
	)
	return nil
}

// sendBatch executes a batch and drains its results.
func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}

type span struct{ lo, hi int }

// chunks yields [lo,hi) spans of at most upsertChunk over n items.
func chunks(n int) []span {
	if n == 0 {
		return nil
	}
	spans := make([]span, 0, n/upsertChunk+1)
	for lo := 0; lo < n; lo += upsertChunk {
		hi := lo + upsertChunk
		if hi > n {
			hi = n
		}
		spans = append(spans, span{lo: lo, hi: hi})
	}
	return spans
}
