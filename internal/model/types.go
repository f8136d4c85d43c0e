package model

import (
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Ingested Data
// -----------------------------------------------------------------------------

// DailyRecord is one ticker's aggregated activity for one trading date.
// Produced by a data source, immutable once stored.
type DailyRecord struct {
	Ticker     string    // Symbol (e.g., "AAPL")
	Date       time.Time // Trading date (midnight UTC)
	Open       float64   // Opening price
	High       float64   // Session high
	Low        float64   // Session low
	Close      float64   // Closing price
	Volume     int64     // Shares traded
	TradeCount int64     // Number of executed trades (0 when the source omits it)
}

// -----------------------------------------------------------------------------
// Rolling Baseline
// -----------------------------------------------------------------------------

// TickerBaseline holds one ticker's rolling trade-count statistics.
//
// Mean, Stddev, and SampleCount describe the retained window as it stood
// BEFORE LastUpdated's own observation was appended, so the statistics never
// include the day they are used to evaluate. Counts carries the post-append
// window (oldest first) for the next trading day's update.
type TickerBaseline struct {
	Ticker      string    // Symbol (primary key)
	WindowSize  int       // Max observations retained
	SampleCount int       // Observations behind Mean/Stddev (<= WindowSize)
	Mean        float64   // Rolling mean trade count over the prior window
	Stddev      float64   // Sample standard deviation over the prior window
	Counts      []int64   // Retained trade counts, oldest first, incl. LastUpdated
	PrevClose   float64   // Close of the most recent day before LastUpdated (0 = unknown)
	LastClose   float64   // Close of LastUpdated itself
	LastUpdated time.Time // Most recent trading date folded into Counts
}

// Warm reports whether the baseline has enough history for detection:
// a sample standard deviation needs at least two observations, and a zero
// deviation makes the Z-score undefined.
func (b *TickerBaseline) Warm() bool {
	return b.SampleCount >= 2 && b.Stddev > 0
}

// -----------------------------------------------------------------------------
// Detection Output
// -----------------------------------------------------------------------------

// AnomalyRecord is one flagged (ticker, date) pair. Uniquely keyed by
// Ticker+Date; re-detection overwrites rather than duplicates.
type AnomalyRecord struct {
	Ticker     string    // Symbol
	Date       time.Time // Trading date the anomaly occurred on
	TradeCount int64     // Observed trade count
	AvgTrades  float64   // Baseline mean the observation was tested against
	StdTrades  float64   // Baseline sample stddev
	ZScore     float64   // (TradeCount - AvgTrades) / StdTrades
	ClosePrice float64   // Closing price on Date
	PriceDiff  *float64  // Percent change vs prior close; nil when unknown
	Volume     int64     // Shares traded on Date
	CreatedAt  time.Time // First persisted at (set by the store)
}

// -----------------------------------------------------------------------------
// Pipeline Results
// -----------------------------------------------------------------------------

// RunState identifies where a pipeline run for a single date ended up.
type RunState string

const (
	StateFetch          RunState = "fetch"
	StateUpdateBaseline RunState = "update_baseline"
	StateDetect         RunState = "detect"
	StatePersist        RunState = "persist"
	StateDone           RunState = "done"
	StateFetchFailed    RunState = "fetch_failed"
)

// RunResult summarizes one single-date pipeline run.
type RunResult struct {
	RunID     uuid.UUID     // Unique per invocation, carried through logs
	Date      time.Time     // Trading date processed
	State     RunState      // Terminal state (StateDone on success)
	Source    string        // Data source that served the fetch ("" on fetch failure)
	Records   int           // Daily records ingested
	Anomalies int           // Anomalies detected (and persisted)
	Succeeded bool          // True iff State == StateDone
	Duration  time.Duration // Wall time for the run
}

// BackfillReport lists the per-date outcomes of a multi-day backfill.
// A backfill never aborts on a single bad date; failed dates are recorded
// here and the remaining dates still run.
type BackfillReport struct {
	Succeeded []time.Time
	Failed    []time.Time
}

// PipelineStats is the aggregate view consumed by dashboards and CLIs.
type PipelineStats struct {
	LatestDate          time.Time // Most recent date with anomalies (zero when none)
	TotalTickersTracked int       // Distinct tickers with ingested records
	TotalAnomalies      int       // All-time anomaly rows
	AnomaliesToday      int       // Anomaly rows on LatestDate
}
