package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mfaber/tradewatch/internal/model"
	"github.com/mfaber/tradewatch/internal/source"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher serves canned records keyed by YYYY-MM-DD and records the
// order dates were requested in.
type fakeFetcher struct {
	data    map[string][]model.DailyRecord
	errs    map[string]error
	src     string
	calls   []string
	onFetch func(date time.Time)
}

func (f *fakeFetcher) Fetch(ctx context.Context, date time.Time) ([]model.DailyRecord, string, error) {
	key := model.FormatDay(date)
	f.calls = append(f.calls, key)
	if f.onFetch != nil {
		f.onFetch(date)
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if err, ok := f.errs[key]; ok {
		return nil, "", err
	}
	recs, ok := f.data[key]
	if !ok {
		return nil, "", &source.DataUnavailableError{Date: date, Causes: []error{source.ErrNoData}}
	}
	return recs, f.src, nil
}

// fakeStore is an in-memory Store with database-like value semantics:
// reads hand out copies, so callers never alias the stored state.
type fakeStore struct {
	mu        sync.Mutex
	baselines map[string]model.TickerBaseline
	records   map[string]model.DailyRecord
	anoms     map[string]model.AnomalyRecord

	getCalls    int
	recordCalls int

	failRecords int // fail this many UpsertDailyRecords calls before succeeding
	getErr      error
	stats       *model.PipelineStats
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		baselines: make(map[string]model.TickerBaseline),
		records:   make(map[string]model.DailyRecord),
		anoms:     make(map[string]model.AnomalyRecord),
	}
}

func tickerDateKey(ticker string, date time.Time) string {
	return ticker + "|" + model.FormatDay(date)
}

func (s *fakeStore) GetBaselines(_ context.Context, tickers []string) (map[string]*model.TickerBaseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	out := make(map[string]*model.TickerBaseline)
	for _, t := range tickers {
		if b, ok := s.baselines[t]; ok {
			cp := b
			cp.Counts = append([]int64(nil), b.Counts...)
			out[t] = &cp
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertBaselines(_ context.Context, baselines map[string]*model.TickerBaseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, b := range baselines {
		if b.LastUpdated.IsZero() {
			continue
		}
		cp := *b
		cp.Counts = append([]int64(nil), b.Counts...)
		s.baselines[t] = cp
	}
	return nil
}

func (s *fakeStore) UpsertDailyRecords(_ context.Context, records []model.DailyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordCalls++
	if s.failRecords > 0 {
		s.failRecords--
		return errors.New("connection reset")
	}
	for _, r := range records {
		s.records[tickerDateKey(r.Ticker, r.Date)] = r
	}
	return nil
}

func (s *fakeStore) UpsertAnomalies(_ context.Context, anomalies []model.AnomalyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range anomalies {
		s.anoms[tickerDateKey(a.Ticker, a.Date)] = a
	}
	return nil
}

func (s *fakeStore) CountBaselines(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.baselines)), nil
}

func (s *fakeStore) AnomaliesByDate(_ context.Context, date time.Time) ([]model.AnomalyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.AnomalyRecord
	for _, a := range s.anoms {
		if a.Date.Equal(date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) Stats(context.Context) (*model.PipelineStats, error) {
	if s.stats == nil {
		return &model.PipelineStats{}, nil
	}
	return s.stats, nil
}

func rec(ticker string, date time.Time, count int64, closePrice float64) model.DailyRecord {
	return model.DailyRecord{
		Ticker:     ticker,
		Date:       date,
		Open:       closePrice,
		High:       closePrice,
		Low:        closePrice,
		Close:      closePrice,
		Volume:     count * 100,
		TradeCount: count,
	}
}

func newTestPipeline(f Fetcher, s Store) *Pipeline {
	p := New(Config{
		WindowSize:      5,
		ZThreshold:      3.0,
		Concurrency:     4,
		PersistAttempts: 3,
	}, f, s, nil, testLogger())
	p.persistInterval = time.Millisecond
	return p
}

var friday = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func TestRunForDateColdStart(t *testing.T) {
	fetcher := &fakeFetcher{
		src: "rest",
		data: map[string][]model.DailyRecord{
			"2024-03-15": {
				rec("AAPL", friday, 120, 150),
				rec("MSFT", friday, 90, 400),
			},
		},
	}
	store := newFakeStore()
	p := newTestPipeline(fetcher, store)

	res, err := p.RunForDate(context.Background(), friday)
	if err != nil {
		t.Fatalf("RunForDate: %v", err)
	}
	if !res.Succeeded || res.State != model.StateDone {
		t.Fatalf("got state %q succeeded=%v, want done/true", res.State, res.Succeeded)
	}
	if res.RunID == uuid.Nil {
		t.Error("run ID not assigned")
	}
	if res.Source != "rest" || res.Records != 2 {
		t.Errorf("got source=%q records=%d, want rest/2", res.Source, res.Records)
	}
	if res.Anomalies != 0 {
		t.Errorf("cold start flagged %d anomalies, want 0", res.Anomalies)
	}
	if res.Duration <= 0 {
		t.Error("duration not measured")
	}

	if len(store.records) != 2 {
		t.Errorf("stored %d daily records, want 2", len(store.records))
	}
	b, ok := store.baselines["AAPL"]
	if !ok {
		t.Fatal("AAPL baseline not persisted")
	}
	if b.SampleCount != 0 || len(b.Counts) != 1 || b.Counts[0] != 120 {
		t.Errorf("got sample_count=%d counts=%v, want 0/[120]", b.SampleCount, b.Counts)
	}
	if !b.LastUpdated.Equal(friday) {
		t.Errorf("got last_updated %v, want %v", b.LastUpdated, friday)
	}
}

func TestRunForDateFlagsWarmAnomaly(t *testing.T) {
	prev := model.PrevBusinessDay(friday)
	store := newFakeStore()
	store.baselines["AAPL"] = model.TickerBaseline{
		Ticker:      "AAPL",
		WindowSize:  5,
		SampleCount: 3,
		Mean:        100,
		Stddev:      2,
		Counts:      []int64{98, 100, 102},
		LastClose:   140,
		LastUpdated: prev,
	}
	store.baselines["MSFT"] = model.TickerBaseline{
		Ticker:      "MSFT",
		WindowSize:  5,
		SampleCount: 3,
		Mean:        100,
		Stddev:      2,
		Counts:      []int64{98, 100, 102},
		LastClose:   400,
		LastUpdated: prev,
	}

	fetcher := &fakeFetcher{
		src: "flatfile",
		data: map[string][]model.DailyRecord{
			"2024-03-15": {
				rec("AAPL", friday, 220, 150), // z = (220-100)/2 = 60
				rec("MSFT", friday, 101, 401), // z = 0.5
			},
		},
	}
	p := newTestPipeline(fetcher, store)

	res, err := p.RunForDate(context.Background(), friday)
	if err != nil {
		t.Fatalf("RunForDate: %v", err)
	}
	if res.Anomalies != 1 {
		t.Fatalf("got %d anomalies, want 1", res.Anomalies)
	}

	a, ok := store.anoms[tickerDateKey("AAPL", friday)]
	if !ok {
		t.Fatal("AAPL anomaly not persisted")
	}
	if a.ZScore != 60 {
		t.Errorf("got z=%v, want 60", a.ZScore)
	}
	if a.AvgTrades != 100 || a.StdTrades != 2 {
		t.Errorf("got avg=%v std=%v, want 100/2", a.AvgTrades, a.StdTrades)
	}
	if a.PriceDiff == nil {
		t.Fatal("price diff missing despite known prior close")
	}
	wantDiff := (150.0 - 140.0) / 140.0 * 100
	if math.Abs(*a.PriceDiff-wantDiff) > 1e-9 {
		t.Errorf("got price diff %v, want %v", *a.PriceDiff, wantDiff)
	}

	b := store.baselines["AAPL"]
	wantCounts := []int64{98, 100, 102, 220}
	if len(b.Counts) != len(wantCounts) {
		t.Fatalf("got counts %v, want %v", b.Counts, wantCounts)
	}
	for i := range wantCounts {
		if b.Counts[i] != wantCounts[i] {
			t.Fatalf("got counts %v, want %v", b.Counts, wantCounts)
		}
	}
	if b.PrevClose != 140 || b.LastClose != 150 {
		t.Errorf("got prev_close=%v last_close=%v, want 140/150", b.PrevClose, b.LastClose)
	}
}

func TestRunForDateFetchFailed(t *testing.T) {
	fetcher := &fakeFetcher{src: "rest"} // no data for any date
	store := newFakeStore()
	p := newTestPipeline(fetcher, store)

	res, err := p.RunForDate(context.Background(), friday)
	if err == nil {
		t.Fatal("expected error when all sources fail")
	}
	var unavail *source.DataUnavailableError
	if !errors.As(err, &unavail) {
		t.Errorf("error %v does not unwrap to DataUnavailableError", err)
	}
	if res.State != model.StateFetchFailed || res.Succeeded {
		t.Errorf("got state %q succeeded=%v, want fetch_failed/false", res.State, res.Succeeded)
	}
	if store.getCalls != 0 || store.recordCalls != 0 {
		t.Error("store touched after failed fetch")
	}
}

func TestRunForDateBaselineLoadError(t *testing.T) {
	fetcher := &fakeFetcher{
		src:  "rest",
		data: map[string][]model.DailyRecord{"2024-03-15": {rec("AAPL", friday, 100, 150)}},
	}
	store := newFakeStore()
	errLoad := errors.New("pool exhausted")
	store.getErr = errLoad
	p := newTestPipeline(fetcher, store)

	res, err := p.RunForDate(context.Background(), friday)
	if !errors.Is(err, errLoad) {
		t.Fatalf("got error %v, want wrapped %v", err, errLoad)
	}
	if res.State != model.StateUpdateBaseline {
		t.Errorf("got state %q, want update_baseline", res.State)
	}
}

func TestRunForDatePersistRetries(t *testing.T) {
	fetcher := &fakeFetcher{
		src:  "rest",
		data: map[string][]model.DailyRecord{"2024-03-15": {rec("AAPL", friday, 100, 150)}},
	}
	store := newFakeStore()
	store.failRecords = 2 // first two attempts fail, third succeeds
	p := newTestPipeline(fetcher, store)

	res, err := p.RunForDate(context.Background(), friday)
	if err != nil {
		t.Fatalf("RunForDate: %v", err)
	}
	if !res.Succeeded {
		t.Error("run did not succeed after persist retries")
	}
	if store.recordCalls != 3 {
		t.Errorf("got %d persist attempts, want 3", store.recordCalls)
	}
}

func TestRunForDatePersistExhausted(t *testing.T) {
	fetcher := &fakeFetcher{
		src:  "rest",
		data: map[string][]model.DailyRecord{"2024-03-15": {rec("AAPL", friday, 100, 150)}},
	}
	store := newFakeStore()
	store.failRecords = 10 // more failures than attempts
	p := newTestPipeline(fetcher, store)

	res, err := p.RunForDate(context.Background(), friday)
	if err == nil {
		t.Fatal("expected error when persist never succeeds")
	}
	if res.State != model.StatePersist || res.Succeeded {
		t.Errorf("got state %q succeeded=%v, want persist/false", res.State, res.Succeeded)
	}
	if store.recordCalls != 3 {
		t.Errorf("got %d persist attempts, want 3", store.recordCalls)
	}
}

func TestRunForDateRerunIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{
		src: "rest",
		data: map[string][]model.DailyRecord{
			"2024-03-15": {rec("AAPL", friday, 120, 150)},
		},
	}
	store := newFakeStore()
	p := newTestPipeline(fetcher, store)

	if _, err := p.RunForDate(context.Background(), friday); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := store.baselines["AAPL"]

	res, err := p.RunForDate(context.Background(), friday)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !res.Succeeded {
		t.Error("replay did not succeed")
	}

	second := store.baselines["AAPL"]
	if len(second.Counts) != len(first.Counts) {
		t.Errorf("replay grew the window: %v -> %v", first.Counts, second.Counts)
	}
	if second.SampleCount != first.SampleCount || second.Mean != first.Mean {
		t.Errorf("replay changed statistics: %+v -> %+v", first, second)
	}
}

func TestQueryAnomaliesAndStats(t *testing.T) {
	store := newFakeStore()
	diff := 7.5
	store.anoms[tickerDateKey("AAPL", friday)] = model.AnomalyRecord{
		Ticker: "AAPL", Date: friday, ZScore: 4.2, PriceDiff: &diff,
	}
	store.anoms[tickerDateKey("GME", friday)] = model.AnomalyRecord{
		Ticker: "GME", Date: friday, ZScore: 9.1,
	}
	store.stats = &model.PipelineStats{
		LatestDate:          friday,
		TotalTickersTracked: 9000,
		TotalAnomalies:      12,
		AnomaliesToday:      2,
	}
	p := newTestPipeline(&fakeFetcher{}, store)

	got, err := p.QueryAnomalies(context.Background(), friday, 0)
	if err != nil {
		t.Fatalf("QueryAnomalies: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d anomalies, want 2", len(got))
	}

	got, err = p.QueryAnomalies(context.Background(), friday, 5)
	if err != nil {
		t.Fatalf("QueryAnomalies(minZ=5): %v", err)
	}
	if len(got) != 1 || got[0].Ticker != "GME" {
		t.Errorf("got %+v, want only GME above z=5", got)
	}

	stats, err := p.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalTickersTracked != 9000 || stats.AnomaliesToday != 2 {
		t.Errorf("got %+v, want tracked=9000 today=2", stats)
	}
}
