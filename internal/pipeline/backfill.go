package pipeline

import (
	"context"
	"time"

	"github.com/mfaber/tradewatch/internal/model"
)

// Backfill runs the pipeline for the last n business days up to and
// including end, oldest first so each day's run sees the baselines the
// previous day produced. A failed date is recorded and the backfill
// moves on; only context cancellation stops the walk early.
func (p *Pipeline) Backfill(ctx context.Context, end time.Time, n int) (*model.BackfillReport, error) {
	report := &model.BackfillReport{}
	dates := model.BusinessDaysBack(end, n)
	if len(dates) == 0 {
		return report, nil
	}

	p.logger.Info("backfill starting",
		"days", len(dates),
		"from", model.FormatDay(dates[0]),
		"to", model.FormatDay(dates[len(dates)-1]),
	)

	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := p.RunForDate(ctx, d); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed = append(report.Failed, d)
			p.logger.Error("backfill date failed", "date", model.FormatDay(d), "error", err)
			continue
		}
		report.Succeeded = append(report.Succeeded, d)
	}

	p.logger.Info("backfill complete",
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
	)
	return report, nil
}
