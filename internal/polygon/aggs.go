package polygon

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mfaber/tradewatch/internal/model"
)

// GetGroupedDaily fetches the daily OHLCV bars for every US stock
// ticker on the given trading date.
func (c *Client) GetGroupedDaily(ctx context.Context, date time.Time) (*GroupedDailyResponse, error) {
	day := model.FormatDay(date)
	path := "/v2/aggs/grouped/locale/us/market/stocks/" + day

	query := url.Values{}
	query.Set("adjusted", "true")

	var resp GroupedDailyResponse
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("get grouped daily %s: %w", day, err)
	}

	return &resp, nil
}
