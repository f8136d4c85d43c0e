package source

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mfaber/tradewatch/internal/model"
)

// ErrNoData indicates a source responded but had no records for the
// date. Market holidays and not-yet-published flat files both surface
// this way.
var ErrNoData = errors.New("no data for date")

// Source produces the full market's daily records for one trading date.
type Source interface {
	// Name identifies the source in logs and run results.
	Name() string
	// FetchDaily returns every ticker's record for the given date.
	FetchDaily(ctx context.Context, date time.Time) ([]model.DailyRecord, error)
}

// DataUnavailableError reports that every configured source failed for
// a date. Causes holds one wrapped error per source, in attempt order.
type DataUnavailableError struct {
	Date   time.Time
	Causes []error
}

func (e *DataUnavailableError) Error() string {
	if len(e.Causes) == 0 {
		return fmt.Sprintf("no market data available for %s", model.FormatDay(e.Date))
	}
	parts := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		parts[i] = c.Error()
	}
	return fmt.Sprintf("no market data available for %s: %s",
		model.FormatDay(e.Date), strings.Join(parts, "; "))
}

// Unwrap exposes the per-source causes to errors.Is and errors.As.
func (e *DataUnavailableError) Unwrap() []error {
	return e.Causes
}
