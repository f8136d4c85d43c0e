// Package storage persists daily records, baselines and anomalies in
// PostgreSQL.
//
// All writes are idempotent upserts keyed on (ticker, date) or ticker,
// batched through pgx so a full market day lands in a handful of round
// trips. Replaying a date overwrites rather than duplicates, which is
// what makes pipeline re-runs safe.
package storage
