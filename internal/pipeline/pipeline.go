package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/mfaber/tradewatch/internal/baseline"
	"github.com/mfaber/tradewatch/internal/detect"
	"github.com/mfaber/tradewatch/internal/metrics"
	"github.com/mfaber/tradewatch/internal/model"
)

// Fetcher resolves a trading date to the market's daily records and
// reports which source served them.
type Fetcher interface {
	Fetch(ctx context.Context, date time.Time) ([]model.DailyRecord, string, error)
}

// Store is the persistence the pipeline depends on.
type Store interface {
	GetBaselines(ctx context.Context, tickers []string) (map[string]*model.TickerBaseline, error)
	UpsertBaselines(ctx context.Context, baselines map[string]*model.TickerBaseline) error
	UpsertDailyRecords(ctx context.Context, records []model.DailyRecord) error
	UpsertAnomalies(ctx context.Context, anomalies []model.AnomalyRecord) error
	CountBaselines(ctx context.Context) (int64, error)
	AnomaliesByDate(ctx context.Context, date time.Time) ([]model.AnomalyRecord, error)
	Stats(ctx context.Context) (*model.PipelineStats, error)
}

// Config holds pipeline tuning.
type Config struct {
	WindowSize      int     // rolling baseline window in trading days
	ZThreshold      float64 // anomaly score cutoff
	Concurrency     int     // baseline update workers
	PersistAttempts int     // total tries for the persist stage
}

// Pipeline runs the fetch, baseline, detect and persist stages for
// single trading dates.
type Pipeline struct {
	cfg      Config
	fetcher  Fetcher
	store    Store
	updater  *baseline.Updater
	detector *detect.Detector
	recorder *metrics.Recorder
	logger   *slog.Logger

	persistInterval time.Duration
}

// New creates a Pipeline. The recorder may be nil when metrics are
// disabled.
func New(cfg Config, fetcher Fetcher, store Store, recorder *metrics.Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		fetcher:  fetcher,
		store:    store,
		updater:  baseline.NewUpdater(cfg.WindowSize, cfg.Concurrency, logger),
		detector: detect.New(cfg.ZThreshold, logger),
		recorder: recorder,
		logger:   logger,

		persistInterval: 500 * time.Millisecond,
	}
}

// RunForDate executes one full pipeline pass for a trading date. The
// returned result always carries the terminal state, also on failure.
// Re-running a date is safe: every write is an upsert and the baseline
// update skips already-applied days.
func (p *Pipeline) RunForDate(ctx context.Context, date time.Time) (*model.RunResult, error) {
	day := model.Day(date)
	start := time.Now()

	res := &model.RunResult{
		RunID: uuid.New(),
		Date:  day,
		State: model.StateFetch,
	}
	log := p.logger.With("run_id", res.RunID, "date", model.FormatDay(day))
	log.Info("pipeline run starting")

	// FETCH
	stageStart := time.Now()
	records, src, err := p.fetcher.Fetch(ctx, day)
	if err != nil {
		res.State = model.StateFetchFailed
		res.Duration = time.Since(start)
		p.countRun("fetch_failed")
		log.Error("fetch failed", "error", err)
		return res, fmt.Errorf("fetch %s: %w", model.FormatDay(day), err)
	}
	res.Source = src
	res.Records = len(records)
	p.observeStage("fetch", stageStart)
	if p.recorder != nil {
		p.recorder.RecordIngested(src, len(records))
	}
	log.Info("fetch complete", "source", src, "records", len(records))

	// UPDATE_BASELINE
	res.State = model.StateUpdateBaseline
	stageStart = time.Now()

	tickers := make([]string, len(records))
	for i, r := range records {
		tickers[i] = r.Ticker
	}
	baselines, err := p.store.GetBaselines(ctx, tickers)
	if err != nil {
		return p.fail(res, start, err, "load baselines")
	}
	if _, err := p.updater.Apply(ctx, baselines, records); err != nil {
		return p.fail(res, start, err, "update baselines")
	}
	p.observeStage("update_baseline", stageStart)

	// DETECT
	res.State = model.StateDetect
	stageStart = time.Now()
	anomalies := p.detector.Detect(day, records, baselines)
	res.Anomalies = len(anomalies)
	p.observeStage("detect", stageStart)
	if p.recorder != nil {
		p.recorder.RecordAnomalies(len(anomalies))
	}

	// PERSIST
	res.State = model.StatePersist
	stageStart = time.Now()
	if err := p.persist(ctx, records, baselines, anomalies); err != nil {
		return p.fail(res, start, err, "persist")
	}
	p.observeStage("persist", stageStart)

	res.State = model.StateDone
	res.Succeeded = true
	res.Duration = time.Since(start)
	p.countRun("done")
	p.updateTrackedGauge(ctx)

	log.Info("pipeline run complete",
		"source", res.Source,
		"records", res.Records,
		"anomalies", res.Anomalies,
		"duration", res.Duration,
	)
	return res, nil
}

// persist writes records, baselines and anomalies in that order.
// Ordering matters for crash recovery: once baselines land, a replay of
// the same date is a no-op for the updater, and anomalies can always be
// recomputed from the stored pre-append statistics.
func (p *Pipeline) persist(ctx context.Context, records []model.DailyRecord, baselines map[string]*model.TickerBaseline, anomalies []model.AnomalyRecord) error {
	op := func() error {
		if err := p.store.UpsertDailyRecords(ctx, records); err != nil {
			return fmt.Errorf("daily records: %w", err)
		}
		if err := p.store.UpsertBaselines(ctx, baselines); err != nil {
			return fmt.Errorf("baselines: %w", err)
		}
		if err := p.store.UpsertAnomalies(ctx, anomalies); err != nil {
			return fmt.Errorf("anomalies: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.persistInterval
	bo.MaxElapsedTime = 0 // bounded by attempt count, not wall time

	var b backoff.BackOff = backoff.WithContext(bo, ctx)
	if p.cfg.PersistAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.cfg.PersistAttempts-1))
	}

	notify := func(err error, d time.Duration) {
		p.logger.Warn("retrying persist", "backoff", d, "error", err)
	}
	return backoff.RetryNotify(op, b, notify)
}

// fail finalizes a result in its current state and counts the run as an
// error.
func (p *Pipeline) fail(res *model.RunResult, start time.Time, err error, stage string) (*model.RunResult, error) {
	res.Duration = time.Since(start)
	p.countRun("error")
	p.logger.Error("pipeline run failed",
		"run_id", res.RunID,
		"state", res.State,
		"error", err,
	)
	return res, fmt.Errorf("%s: %w", stage, err)
}

func (p *Pipeline) countRun(outcome string) {
	if p.recorder != nil {
		p.recorder.RecordRun(outcome)
	}
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	if p.recorder != nil {
		p.recorder.RecordStageDuration(stage, time.Since(start).Seconds())
	}
}

func (p *Pipeline) updateTrackedGauge(ctx context.Context) {
	if p.recorder == nil {
		return
	}
	n, err := p.store.CountBaselines(ctx)
	if err != nil {
		p.logger.Warn("counting baselines failed", "error", err)
		return
	}
	p.recorder.SetTickersTracked(int(n))
}
