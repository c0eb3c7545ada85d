package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/opscart/k8s-chaos-verifier/pkg/datasource"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// RestartRisks classifies each container's restart counter into a crash
// risk tier. Pods with no counter yet are skipped rather than reported
// as zero.
func (a *Analyzer) RestartRisks(ctx context.Context) ([]models.PodRestartRisk, error) {
	series, err := a.source.QuerySeries(ctx, a.queries.Restarts())
	if err != nil {
		if errors.Is(err, datasource.ErrBackendUnreachable) {
			return nil, err
		}
		fmt.Printf("[WARN] Could not query restart counters: %v\n", err)
		return []models.PodRestartRisk{}, nil
	}

	risks := make([]models.PodRestartRisk, 0, len(series))
	for _, s := range series {
		if !s.Sample.Present {
			continue
		}
		restarts := int(s.Sample.Value)
		risks = append(risks, models.PodRestartRisk{
			Pod:      s.Pod,
			Restarts: restarts,
			Risk:     ClassifyRestarts(restarts),
		})
	}
	return risks, nil
}

// ResponseTrend measures whether average response time is drifting up.
func (a *Analyzer) ResponseTrend(ctx context.Context) (models.TrendAssessment, error) {
	slope, err := a.contained(ctx, "response time trend", a.queries.ResponseTrend())
	if err != nil {
		return models.TrendAssessment{Slope: models.Absent(), Severity: models.TrendUnknown}, err
	}
	return models.TrendAssessment{Slope: slope, Severity: ClassifyTrend(slope)}, nil
}

// ClassifyRestarts maps a container restart count to a crash risk tier.
func ClassifyRestarts(restarts int) models.RiskLevel {
	switch {
	case restarts > 10:
		return models.RiskCritical
	case restarts > 5:
		return models.RiskHigh
	case restarts > 2:
		return models.RiskMedium
	default:
		return models.RiskStable
	}
}

// ClassifyTrend maps a response-time derivative to a severity tier.
func ClassifyTrend(slope models.MetricSample) models.TrendSeverity {
	if !slope.Present {
		return models.TrendUnknown
	}
	switch {
	case slope.Value > 0.001:
		return models.TrendWarning
	case slope.Value > 0:
		return models.TrendNotice
	default:
		return models.TrendOK
	}
}
