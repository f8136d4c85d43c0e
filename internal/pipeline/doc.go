// Package pipeline orchestrates the daily anomaly run: fetch the
// market's grouped records, fold them into per-ticker baselines, score
// the day against the pre-update statistics, and persist everything in
// one idempotent pass. It also drives multi-day backfills and the read
// paths used by reporting.
package pipeline
