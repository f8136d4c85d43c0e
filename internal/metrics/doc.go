// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Run outcomes and per-stage durations
//   - Records ingested by data source
//   - Source fetch failures
//   - Anomaly counts and tracked-ticker gauge
package metrics
