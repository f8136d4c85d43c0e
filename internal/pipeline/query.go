package pipeline

import (
	"context"
	"time"

	"github.com/mfaber/tradewatch/internal/model"
)

// QueryAnomalies returns the stored anomalies for a trading date,
// highest score first. minZ drops rows scoring below it; 0 keeps all.
func (p *Pipeline) QueryAnomalies(ctx context.Context, date time.Time, minZ float64) ([]model.AnomalyRecord, error) {
	anomalies, err := p.store.AnomaliesByDate(ctx, model.Day(date))
	if err != nil {
		return nil, err
	}
	if minZ <= 0 {
		return anomalies, nil
	}
	kept := anomalies[:0]
	for _, a := range anomalies {
		if a.ZScore >= minZ {
			kept = append(kept, a)
		}
	}
	return kept, nil
}

// GetStats returns aggregate pipeline state for status output.
func (p *Pipeline) GetStats(ctx context.Context) (*model.PipelineStats, error) {
	return p.store.Stats(ctx)
}
