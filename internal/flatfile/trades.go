package flatfile

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mfaber/tradewatch/internal/model"
)

// TradeFilter selects which trades contribute to per-ticker aggregates.
type TradeFilter struct {
	// Venues keeps only trades reported on these venue codes, such as
	// TRF and ADF for off-exchange prints. Empty keeps every venue.
	Venues []string
	// MinSize drops trades below this share count. Zero keeps all.
	MinSize int64
}

func (tf TradeFilter) venueSet() map[string]struct{} {
	if len(tf.Venues) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tf.Venues))
	for _, v := range tf.Venues {
		set[v] = struct{}{}
	}
	return set
}

// FetchTrades downloads the raw trades file for the given date and
// aggregates the filtered trades into per-ticker daily records. OHLC is
// derived from the filtered trade sequence in file order, so the open
// is the first qualifying print and the close the last.
func (f *Fetcher) FetchTrades(ctx context.Context, date time.Time, filter TradeFilter) ([]model.DailyRecord, error) {
	key := TradesKey(date)

	var records []model.DailyRecord
	op := func() error {
		attemptCtx := ctx
		if f.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, f.timeout)
			defer cancel()
		}

		obj, err := f.download(attemptCtx, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		defer obj.Close()

		records, err = f.decodeTrades(obj, date, filter)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = f.maxElapsed
	notify := func(err error, d time.Duration) {
		f.logger.Warn("retrying flat file download",
			"key", key,
			"backoff", d,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, err
	}

	f.logger.Info("aggregated trades file",
		"key", key,
		"tickers", len(records),
	)
	return records, nil
}

// tradeAgg accumulates one ticker's filtered trades.
type tradeAgg struct {
	open   float64
	high   float64
	low    float64
	close  float64
	volume int64
	count  int64
}

func (a *tradeAgg) add(price float64, size int64) {
	if a.count == 0 {
		a.open = price
		a.high = price
		a.low = price
	} else {
		if price > a.high {
			a.high = price
		}
		if price < a.low {
			a.low = price
		}
	}
	a.close = price
	a.volume += size
	a.count++
}

// decodeTrades streams a gzipped trades CSV and aggregates qualifying
// trades per ticker. The file is orders of magnitude larger than the
// day aggregates, so rows are processed one at a time without buffering
// the decompressed content.
func (f *Fetcher) decodeTrades(r io.Reader, date time.Time, filter TradeFilter) ([]model.DailyRecord, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	cr := csv.NewReader(gz)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := headerIndex(header)
	for _, name := range []string{"ticker", "price", "size"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("trades file missing column %q", name)
		}
	}

	venues := filter.venueSet()
	aggs := make(map[string]*tradeAgg)
	var skipped int

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		ticker := field(row, col, "ticker")
		if ticker == "" {
			skipped++
			continue
		}

		if venues != nil {
			if _, ok := venues[field(row, col, "exchange")]; !ok {
				continue
			}
		}

		price, ok := parseFloat(field(row, col, "price"))
		if !ok {
			skipped++
			continue
		}
		size, ok := parseInt(field(row, col, "size"))
		if !ok {
			skipped++
			continue
		}
		if filter.MinSize > 0 && size < filter.MinSize {
			continue
		}

		agg, ok := aggs[ticker]
		if !ok {
			agg = &tradeAgg{}
			aggs[ticker] = agg
		}
		agg.add(price, size)
	}

	if skipped > 0 {
		f.logger.Warn("skipped malformed trade rows",
			"date", model.FormatDay(date),
			"skipped", skipped,
		)
	}

	day := model.Day(date)
	records := make([]model.DailyRecord, 0, len(aggs))
	for ticker, agg := range aggs {
		records = append(records, model.DailyRecord{
			Ticker:     ticker,
			Date:       day,
			Open:       agg.open,
			High:       agg.high,
			Low:        agg.low,
			Close:      agg.close,
			Volume:     agg.volume,
			TradeCount: agg.count,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Ticker < records[j].Ticker })

	return records, nil
}
