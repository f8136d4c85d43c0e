package model

import "time"

// DayFormat is the wire/CLI format for trading dates.
const DayFormat = "2006-01-02"

// Day normalizes t to midnight UTC, the canonical trading-date form.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a canonical trading date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// FormatDay renders a trading date as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}

// IsBusinessDay reports whether t falls on a weekday. Exchange holidays are
// not modeled; a holiday simply yields an empty dataset upstream.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// PrevBusinessDay returns the closest weekday strictly before t.
func PrevBusinessDay(t time.Time) time.Time {
	d := Day(t).AddDate(0, 0, -1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// BusinessDaysBack returns the n weekdays ending at (and including) end when
// it is a weekday, oldest first. Processing in this order keeps baseline
// updates chronological.
func BusinessDaysBack(end time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	days := make([]time.Time, 0, n)
	d := Day(end)
	if !IsBusinessDay(d) {
		d = PrevBusinessDay(d)
	}
	for len(days) < n {
		days = append(days, d)
		d = PrevBusinessDay(d)
	}
	// Reverse into chronological order.
	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}
	return days
}
