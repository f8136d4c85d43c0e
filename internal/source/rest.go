package source

import (
	"context"
	"fmt"
	"time"

	"github.com/mfaber/tradewatch/internal/model"
	"github.com/mfaber/tradewatch/internal/polygon"
)

// RESTSource fetches daily records from the grouped daily aggregates
// endpoint.
type RESTSource struct {
	client *polygon.Client
}

// NewREST wraps a Polygon client as a Source.
func NewREST(client *polygon.Client) *RESTSource {
	return &RESTSource{client: client}
}

func (s *RESTSource) Name() string { return "rest" }

func (s *RESTSource) FetchDaily(ctx context.Context, date time.Time) ([]model.DailyRecord, error) {
	resp, err := s.client.GetGroupedDaily(ctx, date)
	if err != nil {
		return nil, err
	}

	if resp.ResultsCount == 0 || len(resp.Results) == 0 {
		return nil, fmt.Errorf("%s: %w", model.FormatDay(date), ErrNoData)
	}

	return resp.ToDailyRecords(date), nil
}
