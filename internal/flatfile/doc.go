// Package flatfile downloads bulk market data files from the
// provider's S3-compatible object store.
//
// Two file families are supported. Day aggregate files hold one
// finished OHLCV row per ticker and are the cheap, preferred source.
// Raw trades files hold every print of the session; aggregating them
// locally allows filtering by reporting venue and trade size, which is
// how the off-exchange detection mode builds its per-ticker counts.
// Both arrive as gzipped CSV and are decoded in a single streaming
// pass.
package flatfile
