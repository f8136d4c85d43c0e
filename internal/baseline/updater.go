package baseline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mfaber/tradewatch/internal/model"
)

// Updater folds a day's records into per-ticker baselines.
type Updater struct {
	windowSize  int
	concurrency int
	logger      *slog.Logger
}

// NewUpdater creates an Updater with the given rolling window size and
// worker concurrency.
func NewUpdater(windowSize, concurrency int, logger *slog.Logger) *Updater {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{
		windowSize:  windowSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Apply updates baselines in place with one day's records, creating
// entries for tickers seen for the first time. Records at or before a
// baseline's last applied date are skipped, so replaying a day never
// double-counts it. Returns the number of baselines that changed.
func (u *Updater) Apply(ctx context.Context, baselines map[string]*model.TickerBaseline, records []model.DailyRecord) (int, error) {
	start := time.Now()

	// One record per ticker per day; keep the first if a source ever
	// misbehaves. The map is fully populated before workers start so
	// they never write to it.
	unique := make([]model.DailyRecord, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if seen[rec.Ticker] {
			continue
		}
		seen[rec.Ticker] = true
		unique = append(unique, rec)

		if _, ok := baselines[rec.Ticker]; !ok {
			baselines[rec.Ticker] = &model.TickerBaseline{
				Ticker:     rec.Ticker,
				WindowSize: u.windowSize,
			}
		}
	}
	if dropped := len(records) - len(unique); dropped > 0 {
		u.logger.Warn("dropped duplicate ticker records", "dropped", dropped)
	}

	sem := make(chan struct{}, u.concurrency)
	var wg sync.WaitGroup
	var updated, skipped atomic.Int64

	for _, rec := range unique {
		wg.Add(1)
		go func(rec model.DailyRecord) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			if applyRecord(baselines[rec.Ticker], rec, u.windowSize) {
				updated.Add(1)
			} else {
				skipped.Add(1)
			}
		}(rec)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return int(updated.Load()), err
	}

	u.logger.Info("baselines updated",
		"records", len(unique),
		"updated", updated.Load(),
		"skipped", skipped.Load(),
		"duration", time.Since(start),
	)
	return int(updated.Load()), nil
}

// applyRecord advances one baseline by one day. The stored Mean, Stddev
// and SampleCount describe the window before rec's count is appended,
// so a day is never scored against statistics that include itself.
func applyRecord(b *model.TickerBaseline, rec model.DailyRecord, windowSize int) bool {
	if !b.LastUpdated.IsZero() && !rec.Date.After(b.LastUpdated) {
		return false
	}

	b.SampleCount = len(b.Counts)
	b.Mean = Mean(b.Counts)
	b.Stddev = SampleStddev(b.Counts)

	b.WindowSize = windowSize
	b.Counts = append(b.Counts, rec.TradeCount)
	if len(b.Counts) > windowSize {
		b.Counts = b.Counts[len(b.Counts)-windowSize:]
	}

	b.PrevClose = b.LastClose
	b.LastClose = rec.Close
	b.LastUpdated = rec.Date
	return true
}
