// Package detect implements z-score anomaly detection over daily trade
// counts.
package detect
