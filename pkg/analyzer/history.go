package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/datasource"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// Summaries computes aggregate statistics over the recent history of
// the headline metrics. Metrics with no samples in the window are
// skipped rather than reported as zero.
func (a *Analyzer) Summaries(ctx context.Context, window, step time.Duration) ([]models.RangeSummary, error) {
	metrics := []struct {
		name string
		expr string
	}{
		{"request_rate", a.queries.RequestRate()},
		{"error_rate", a.queries.ErrorRate()},
		{"response_time_avg", a.queries.ResponseTimeAvg()},
	}

	summaries := make([]models.RangeSummary, 0, len(metrics))
	for _, m := range metrics {
		if a.verbose {
			fmt.Printf("[DEBUG] Range query %s over %s (step %s)\n", m.name, window, step)
		}

		samples, err := a.source.QueryRange(ctx, m.expr, window, step)
		if err != nil {
			if errors.Is(err, datasource.ErrBackendUnreachable) {
				return nil, err
			}
			fmt.Printf("[WARN] Could not query history for %s: %v\n", m.name, err)
			continue
		}
		if len(samples) == 0 {
			continue
		}

		stats, err := CalculateStats(samples)
		if err != nil {
			continue
		}

		summaries = append(summaries, models.RangeSummary{
			Metric:      m.name,
			Window:      window,
			Step:        step,
			SampleCount: len(samples),
			Stats:       stats,
		})
	}
	return summaries, nil
}
