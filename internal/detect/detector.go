package detect

import (
	"log/slog"
	"sort"
	"time"

	"github.com/mfaber/tradewatch/internal/model"
)

// Detector flags tickers whose daily trade count sits unusually far
// above their rolling baseline.
type Detector struct {
	threshold float64
	logger    *slog.Logger
}

// New creates a Detector that flags z-scores at or above threshold.
func New(threshold float64, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{threshold: threshold, logger: logger}
}

// Detect scores each record against its ticker's baseline and returns
// the anomalies for the date, highest z-score first. A ticker is only
// scored when its baseline is warm and has been advanced through the
// same date, which guarantees the stored statistics exclude the day
// being judged. Only upward deviations are flagged; a quiet day is not
// an anomaly.
func (d *Detector) Detect(date time.Time, records []model.DailyRecord, baselines map[string]*model.TickerBaseline) []model.AnomalyRecord {
	day := model.Day(date)
	now := time.Now().UTC()

	var anomalies []model.AnomalyRecord
	var cold, stale int

	for _, rec := range records {
		b, ok := baselines[rec.Ticker]
		if !ok {
			cold++
			continue
		}
		if !b.LastUpdated.Equal(day) {
			stale++
			continue
		}
		if !b.Warm() {
			cold++
			continue
		}

		z := (float64(rec.TradeCount) - b.Mean) / b.Stddev
		if z < d.threshold {
			continue
		}

		a := model.AnomalyRecord{
			Ticker:     rec.Ticker,
			Date:       day,
			TradeCount: rec.TradeCount,
			AvgTrades:  b.Mean,
			StdTrades:  b.Stddev,
			ZScore:     z,
			ClosePrice: rec.Close,
			Volume:     rec.Volume,
			CreatedAt:  now,
		}
		if b.PrevClose > 0 {
			diff := (rec.Close - b.PrevClose) / b.PrevClose * 100
			a.PriceDiff = &diff
		}
		anomalies = append(anomalies, a)
	}

	sort.Slice(anomalies, func(i, j int) bool {
		if anomalies[i].ZScore != anomalies[j].ZScore {
			return anomalies[i].ZScore > anomalies[j].ZScore
		}
		return anomalies[i].Ticker < anomalies[j].Ticker
	})

	d.logger.Info("anomaly scan complete",
		"date", model.FormatDay(day),
		"scored", len(records),
		"anomalies", len(anomalies),
		"cold", cold,
		"stale", stale,
		"threshold", d.threshold,
	)
	return anomalies
}
