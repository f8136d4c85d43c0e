package flatfile

import (
	"fmt"
	"time"

	"github.com/mfaber/tradewatch/internal/model"
)

// DayAggsKey returns the object key for the daily aggregates file of
// the given date, e.g. us_stocks_sip/day_aggs_v1/2024/03/2024-03-15.csv.gz.
func DayAggsKey(date time.Time) string {
	return fmt.Sprintf("us_stocks_sip/day_aggs_v1/%04d/%02d/%s.csv.gz",
		date.Year(), int(date.Month()), model.FormatDay(date))
}

// TradesKey returns the object key for the raw trades file of the given
// date. Trades files are far larger than day aggregates and not
// available on all plans.
func TradesKey(date time.Time) string {
	return fmt.Sprintf("us_stocks_sip/trades_v1/%04d/%02d/%s.csv.gz",
		date.Year(), int(date.Month()), model.FormatDay(date))
}
