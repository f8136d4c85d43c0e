package polygon

// GroupedDailyResponse is the envelope returned by the grouped daily
// aggregates endpoint.
type GroupedDailyResponse struct {
	Adjusted     bool        `json:"adjusted"`
	QueryCount   int         `json:"queryCount"`
	ResultsCount int         `json:"resultsCount"`
	Status       string      `json:"status"`
	RequestID    string      `json:"request_id"`
	Results      []AggResult `json:"results"`
}

// AggResult is one ticker's daily OHLCV bar. Field names follow the
// wire format: upper-case T is the ticker symbol, lower-case t the bar
// timestamp. Volume arrives as a float and may use scientific notation.
type AggResult struct {
	Ticker       string  `json:"T"`
	Volume       float64 `json:"v"`
	VWAP         float64 `json:"vw"`
	Open         float64 `json:"o"`
	Close        float64 `json:"c"`
	High         float64 `json:"h"`
	Low          float64 `json:"l"`
	Timestamp    int64   `json:"t"` // unix milliseconds, end of bar
	Transactions int64   `json:"n"`
}
