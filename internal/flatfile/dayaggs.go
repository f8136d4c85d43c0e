package flatfile

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mfaber/tradewatch/internal/model"
)

// FetchDayAggs downloads and decodes the daily aggregates file for the
// given date. Transient download failures are retried with exponential
// backoff; a missing file fails immediately with ErrNotFound.
func (f *Fetcher) FetchDayAggs(ctx context.Context, date time.Time) ([]model.DailyRecord, error) {
	key := DayAggsKey(date)

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

		records, err = f.decodeDayAggs(obj, date)
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

	f.logger.Info("downloaded day aggregates",
		"key", key,
		"records", len(records),
	)
	return records, nil
}

// decodeDayAggs parses a gzipped day aggregates CSV. Rows that fail to
// parse are skipped so one bad line cannot sink a whole trading day.
func (f *Fetcher) decodeDayAggs(r io.Reader, date time.Time) ([]model.DailyRecord, error) {
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
	for _, name := range []string{"ticker", "volume", "open", "close", "high", "low"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("day aggregates file missing column %q", name)
		}
	}

	day := model.Day(date)
	var records []model.DailyRecord
	var skipped int

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		rec, ok := parseDayAggRow(row, col, day)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		f.logger.Warn("skipped malformed day aggregate rows",
			"date", model.FormatDay(day),
			"skipped", skipped,
		)
	}
	return records, nil
}

// parseDayAggRow converts one CSV row into a DailyRecord. Empty numeric
// fields count as zero; rows with no ticker or non-numeric fields are
// rejected.
func parseDayAggRow(row []string, col map[string]int, day time.Time) (model.DailyRecord, bool) {
	ticker := field(row, col, "ticker")
	if ticker == "" {
		return model.DailyRecord{}, false
	}

	volume, ok := parseInt(field(row, col, "volume"))
	if !ok {
		return model.DailyRecord{}, false
	}
	open, ok := parseFloat(field(row, col, "open"))
	if !ok {
		return model.DailyRecord{}, false
	}
	closePrice, ok := parseFloat(field(row, col, "close"))
	if !ok {
		return model.DailyRecord{}, false
	}
	high, ok := parseFloat(field(row, col, "high"))
	if !ok {
		return model.DailyRecord{}, false
	}
	low, ok := parseFloat(field(row, col, "low"))
	if !ok {
		return model.DailyRecord{}, false
	}
	count, ok := parseInt(field(row, col, "transactions"))
	if !ok {
		return model.DailyRecord{}, false
	}

	return model.DailyRecord{
		Ticker:     ticker,
		Date:       day,
		Open:       open,
		High:       high,
		Low:        low,
		Close:      closePrice,
		Volume:     volume,
		TradeCount: count,
	}, true
}

// headerIndex maps column names to their positions.
func headerIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	return col
}

// field returns the named column of row, or "" when the column is
// absent or the row is short.
func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseInt(s string) (int64, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
