package baseline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/mfaber/tradewatch/internal/model"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func rec(ticker string, d int, count int64, close float64) model.DailyRecord {
	return model.DailyRecord{Ticker: ticker, Date: day(d), TradeCount: count, Close: close}
}

func TestApplyFirstDay(t *testing.T) {
	u := NewUpdater(5, 4, nil)
	baselines := map[string]*model.TickerBaseline{}

	updated, err := u.Apply(context.Background(), baselines, []model.DailyRecord{
		rec("AAPL", 1, 100, 150.0),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}

	b := baselines["AAPL"]
	if b == nil {
		t.Fatal("baseline not created")
	}
	if b.SampleCount != 0 || b.Mean != 0 || b.Stddev != 0 {
		t.Errorf("pre-append stats = %d/%v/%v, want 0/0/0 on first day", b.SampleCount, b.Mean, b.Stddev)
	}
	if len(b.Counts) != 1 || b.Counts[0] != 100 {
		t.Errorf("Counts = %v, want [100]", b.Counts)
	}
	if b.LastClose != 150.0 {
		t.Errorf("LastClose = %v, want 150.0", b.LastClose)
	}
	if b.PrevClose != 0 {
		t.Errorf("PrevClose = %v, want 0 with no prior day", b.PrevClose)
	}
	if !b.LastUpdated.Equal(day(1)) {
		t.Errorf("LastUpdated = %v, want %v", b.LastUpdated, day(1))
	}
	if b.Warm() {
		t.Error("baseline should not be warm after one day")
	}
}

func TestApplySequentialDays(t *testing.T) {
	u := NewUpdater(5, 4, nil)
	baselines := map[string]*model.TickerBaseline{}
	ctx := context.Background()

	counts := []int64{80, 100, 120}
	for i, c := range counts {
		if _, err := u.Apply(ctx, baselines, []model.DailyRecord{rec("AAPL", i+1, c, 10.0+float64(i))}); err != nil {
			t.Fatalf("Apply day %d failed: %v", i+1, err)
		}
	}

	// Day 4: stats must describe days 1-3 only.
	if _, err := u.Apply(ctx, baselines, []model.DailyRecord{rec("AAPL", 4, 220, 14.0)}); err != nil {
		t.Fatalf("Apply day 4 failed: %v", err)
	}

	b := baselines["AAPL"]
	if b.SampleCount != 3 {
		t.Errorf("SampleCount = %d, want 3", b.SampleCount)
	}
	if b.Mean != 100 {
		t.Errorf("Mean = %v, want 100", b.Mean)
	}
	if math.Abs(b.Stddev-20) > 1e-9 {
		t.Errorf("Stddev = %v, want 20", b.Stddev)
	}
	if !b.Warm() {
		t.Error("baseline should be warm with 3 samples and spread")
	}
	if len(b.Counts) != 4 || b.Counts[3] != 220 {
		t.Errorf("Counts = %v, want [80 100 120 220]", b.Counts)
	}
	if b.PrevClose != 12.0 {
		t.Errorf("PrevClose = %v, want day-3 close 12.0", b.PrevClose)
	}
	if b.LastClose != 14.0 {
		t.Errorf("LastClose = %v, want 14.0", b.LastClose)
	}
}

func TestApplyEvictsBeyondWindow(t *testing.T) {
	u := NewUpdater(3, 4, nil)
	baselines := map[string]*model.TickerBaseline{}
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := u.Apply(ctx, baselines, []model.DailyRecord{rec("AAPL", i, int64(i * 10), 1)}); err != nil {
			t.Fatalf("Apply day %d failed: %v", i, err)
		}
	}

	b := baselines["AAPL"]
	if len(b.Counts) != 3 {
		t.Fatalf("len(Counts) = %d, want window size 3", len(b.Counts))
	}
	want := []int64{30, 40, 50}
	for i, w := range want {
		if b.Counts[i] != w {
			t.Errorf("Counts[%d] = %d, want %d (oldest evicted first)", i, b.Counts[i], w)
		}
	}
	// Stats on day 5 cover days 2-4, the window before the append.
	if b.Mean != 30 {
		t.Errorf("Mean = %v, want 30", b.Mean)
	}
	if b.SampleCount != 3 {
		t.Errorf("SampleCount = %d, want 3", b.SampleCount)
	}
}

func TestApplyIdempotentForSameDay(t *testing.T) {
	u := NewUpdater(5, 4, nil)
	baselines := map[string]*model.TickerBaseline{}
	ctx := context.Background()

	records := []model.DailyRecord{rec("AAPL", 1, 100, 150.0)}
	if _, err := u.Apply(ctx, baselines, records); err != nil {
		t.Fatalf("first Apply failed: %v", err)
	}

	updated, err := u.Apply(ctx, baselines, records)
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("updated = %d, want 0 on replay", updated)
	}
	if len(baselines["AAPL"].Counts) != 1 {
		t.Errorf("Counts = %v, want single entry after replay", baselines["AAPL"].Counts)
	}
}

func TestApplySkipsOlderRecords(t *testing.T) {
	u := NewUpdater(5, 4, nil)
	baselines := map[string]*model.TickerBaseline{}
	ctx := context.Background()

	if _, err := u.Apply(ctx, baselines, []model.DailyRecord{rec("AAPL", 5, 100, 150.0)}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	updated, err := u.Apply(ctx, baselines, []model.DailyRecord{rec("AAPL", 3, 999, 1.0)})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if updated != 0 {
		t.Errorf("updated = %d, want 0 for out-of-order record", updated)
	}
	if baselines["AAPL"].LastClose != 150.0 {
		t.Errorf("LastClose = %v, want unchanged 150.0", baselines["AAPL"].LastClose)
	}
}

func TestApplyDropsDuplicateTickers(t *testing.T) {
	u := NewUpdater(5, 4, nil)
	baselines := map[string]*model.TickerBaseline{}

	updated, err := u.Apply(context.Background(), baselines, []model.DailyRecord{
		rec("AAPL", 1, 100, 150.0),
		rec("AAPL", 1, 999, 1.0),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}
	b := baselines["AAPL"]
	if len(b.Counts) != 1 || b.Counts[0] != 100 {
		t.Errorf("Counts = %v, want first record kept", b.Counts)
	}
}

func TestApplyShrinksWindowOnResize(t *testing.T) {
	wide := NewUpdater(5, 4, nil)
	baselines := map[string]*model.TickerBaseline{}
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := wide.Apply(ctx, baselines, []model.DailyRecord{rec("AAPL", i, int64(i), 1)}); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
	}

	narrow := NewUpdater(2, 4, nil)
	if _, err := narrow.Apply(ctx, baselines, []model.DailyRecord{rec("AAPL", 6, 6, 1)}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	b := baselines["AAPL"]
	if b.WindowSize != 2 {
		t.Errorf("WindowSize = %d, want 2", b.WindowSize)
	}
	if len(b.Counts) != 2 || b.Counts[0] != 5 || b.Counts[1] != 6 {
		t.Errorf("Counts = %v, want [5 6]", b.Counts)
	}
}

func TestApplyManyTickers(t *testing.T) {
	u := NewUpdater(5, 8, nil)
	baselines := map[string]*model.TickerBaseline{}

	var records []model.DailyRecord
	for i := 0; i < 500; i++ {
		records = append(records, rec(tickerName(i), 1, int64(i), float64(i)))
	}

	updated, err := u.Apply(context.Background(), baselines, records)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if updated != 500 {
		t.Errorf("updated = %d, want 500", updated)
	}
	if len(baselines) != 500 {
		t.Errorf("len(baselines) = %d, want 500", len(baselines))
	}
}

func tickerName(i int) string {
	letters := []byte{'A' + byte(i%26), 'A' + byte((i/26)%26), 'A' + byte((i/676)%26)}
	return string(letters)
}

func TestApplyCancelledContext(t *testing.T) {
	u := NewUpdater(5, 1, nil)
	baselines := map[string]*model.TickerBaseline{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := u.Apply(ctx, baselines, []model.DailyRecord{rec("AAPL", 1, 100, 1)})
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
