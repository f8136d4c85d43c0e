// Package polygon implements a client for the Polygon.io REST API.
//
// Only the grouped daily aggregates endpoint is wrapped; it returns one
// OHLCV bar per US stock ticker for a trading date, which is all the
// anomaly pipeline needs when flat files are unavailable. Requests are
// retried with exponential backoff on 5xx and 429 responses, and an
// optional client-side rate limiter keeps metered API keys under their
// plan's request budget.
package polygon
