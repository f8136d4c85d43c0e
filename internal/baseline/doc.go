// Package baseline maintains rolling per-ticker trade-count statistics.
//
// Each ticker carries a FIFO window of recent daily counts plus the
// mean and sample standard deviation of that window as it stood before
// the newest day was appended. Keeping the pre-append statistics is
// what lets the detector score a day without the day influencing its
// own expected range.
package baseline
