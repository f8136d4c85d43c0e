package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mfaber/tradewatch/internal/flatfile"
	"github.com/mfaber/tradewatch/internal/model"
)

// fileFetcher is the slice of flatfile.Fetcher this source uses.
type fileFetcher interface {
	FetchDayAggs(ctx context.Context, date time.Time) ([]model.DailyRecord, error)
	FetchTrades(ctx context.Context, date time.Time, filter flatfile.TradeFilter) ([]model.DailyRecord, error)
}

// FlatFileSource fetches daily records from bulk flat files, either the
// prebuilt day aggregates or locally aggregated raw trades.
type FlatFileSource struct {
	fetcher   fileFetcher
	useTrades bool
	filter    flatfile.TradeFilter
}

// NewFlatFile wraps a flat-file fetcher as a Source. With useTrades set
// the source reads the raw trades file and applies the filter; the
// resulting counts cover only the filtered prints.
func NewFlatFile(fetcher *flatfile.Fetcher, useTrades bool, filter flatfile.TradeFilter) *FlatFileSource {
	return &FlatFileSource{
		fetcher:   fetcher,
		useTrades: useTrades,
		filter:    filter,
	}
}

func (s *FlatFileSource) Name() string {
	if s.useTrades {
		return "flatfile-trades"
	}
	return "flatfile"
}

func (s *FlatFileSource) FetchDaily(ctx context.Context, date time.Time) ([]model.DailyRecord, error) {
	var (
		records []model.DailyRecord
		err     error
	)
	if s.useTrades {
		records, err = s.fetcher.FetchTrades(ctx, date, s.filter)
	} else {
		records, err = s.fetcher.FetchDayAggs(ctx, date)
	}

	if err != nil {
		if errors.Is(err, flatfile.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", model.FormatDay(date), ErrNoData)
		}
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", model.FormatDay(date), ErrNoData)
	}

	return records, nil
}
