package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfaber/tradewatch/internal/model"
)

// Resolver tries sources in order until one produces data for a date.
type Resolver struct {
	sources   []Source
	logger    *slog.Logger
	onFailure func(source string)
}

// NewResolver creates a Resolver that attempts the given sources in
// order.
func NewResolver(logger *slog.Logger, sources ...Source) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{sources: sources, logger: logger}
}

// OnFailure registers a callback invoked with the source name each time
// a source fails, before the next source is tried.
func (r *Resolver) OnFailure(fn func(source string)) {
	r.onFailure = fn
}

// Fetch returns the first source's records along with that source's
// name. When every source fails the error is a *DataUnavailableError
// carrying all causes.
func (r *Resolver) Fetch(ctx context.Context, date time.Time) ([]model.DailyRecord, string, error) {
	causes := make([]error, 0, len(r.sources))

	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		records, err := src.FetchDaily(ctx, date)
		if err != nil {
			r.logger.Warn("data source failed",
				"source", src.Name(),
				"date", model.FormatDay(date),
				"error", err,
			)
			if r.onFailure != nil {
				r.onFailure(src.Name())
			}
			causes = append(causes, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}

		return records, src.Name(), nil
	}

	return nil, "", &DataUnavailableError{Date: model.Day(date), Causes: causes}
}
