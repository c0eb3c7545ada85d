package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/datasource"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// Analyzer collects live health metrics for the target workload and
// assembles the performance analysis report.
type Analyzer struct {
	source  datasource.MetricsSource
	queries *Queries
	target  Target
	verbose bool
}

func New(source datasource.MetricsSource, target Target, verbose bool) *Analyzer {
	return &Analyzer{
		source:  source,
		queries: NewQueries(target),
		target:  target,
		verbose: verbose,
	}
}

// Queries exposes the PromQL builder so callers can share it.
func (a *Analyzer) Queries() *Queries {
	return a.queries
}

// CollectCurrent gathers the headline health metrics in one pass. Every
// query must resolve to a value or to absent before the caller moves on
// to threshold evaluation.
func (a *Analyzer) CollectCurrent(ctx context.Context) (models.CurrentMetrics, error) {
	var current models.CurrentMetrics
	var err error

	if current.PodCount, err = a.contained(ctx, "pod count", a.queries.PodCount()); err != nil {
		return current, err
	}
	if current.RequestRate, err = a.contained(ctx, "request rate", a.queries.RequestRate()); err != nil {
		return current, err
	}
	if current.ErrorRate, err = a.contained(ctx, "error rate", a.queries.ErrorRate()); err != nil {
		return current, err
	}
	if current.ResponseTimeAvg, err = a.contained(ctx, "avg response time", a.queries.ResponseTimeAvg()); err != nil {
		return current, err
	}

	return current, nil
}

// Analyze runs the full metric collection pass: current health, per-pod
// crash risk, and the response-time trend.
func (a *Analyzer) Analyze(ctx context.Context) (*models.AnalysisReport, error) {
	report := &models.AnalysisReport{
		GeneratedAt: time.Now(),
		Namespace:   a.target.Namespace,
		Workload:    a.target.Deployment,
	}

	current, err := a.CollectCurrent(ctx)
	if err != nil {
		return nil, err
	}
	report.Current = current

	risks, err := a.RestartRisks(ctx)
	if err != nil {
		return nil, err
	}
	report.RestartRisks = risks
	for _, r := range risks {
		if r.Risk == models.RiskHigh || r.Risk == models.RiskCritical {
			report.HighRiskPods = append(report.HighRiskPods, r.Pod)
		}
	}

	trend, err := a.ResponseTrend(ctx)
	if err != nil {
		return nil, err
	}
	report.ResponseTrend = trend

	return report, nil
}

// contained runs an instant query, downgrading a per-query failure to an
// absent sample. Only an unreachable backend propagates, since no useful
// analysis can run without one.
func (a *Analyzer) contained(ctx context.Context, name, expr string) (models.MetricSample, error) {
	if a.verbose {
		fmt.Printf("[DEBUG] Querying %s: %s\n", name, expr)
	}

	sample, err := a.source.Query(ctx, expr)
	if err != nil {
		if errors.Is(err, datasource.ErrBackendUnreachable) {
			return models.Absent(), err
		}
		fmt.Printf("[WARN] Could not query %s: %v\n", name, err)
		return models.Absent(), nil
	}
	return sample, nil
}
