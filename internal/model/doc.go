// Package model defines shared data types used across the pipeline.
//
// Conventions:
//   - Trading dates: time.Time normalized to midnight UTC (see Day)
//   - Prices: float64 dollars, as delivered by the market-data provider
//   - Volumes and trade counts: int64 (single-day totals overflow int32 on
//     high-activity tickers)
package model
