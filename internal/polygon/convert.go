package polygon

import (
	"time"

	"github.com/mfaber/tradewatch/internal/model"
)

// ToDailyRecords converts a grouped daily response into model records
// for the given trading date. Rows without a ticker symbol are skipped;
// a missing transaction count is treated as zero rather than an error,
// matching how the endpoint reports inactive tickers.
func (r *GroupedDailyResponse) ToDailyRecords(date time.Time) []model.DailyRecord {
	day := model.Day(date)

	records := make([]model.DailyRecord, 0, len(r.Results))
	for _, agg := range r.Results {
		if agg.Ticker == "" {
			continue
		}

		records = append(records, model.DailyRecord{
			Ticker:     agg.Ticker,
			Date:       day,
			Open:       agg.Open,
			High:       agg.High,
			Low:        agg.Low,
			Close:      agg.Close,
			Volume:     int64(agg.Volume),
			TradeCount: agg.Transactions,
		})
	}

	return records
}
