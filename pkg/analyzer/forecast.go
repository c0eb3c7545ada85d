package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/datasource"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// ForecastOptions bounds the backend-side regression.
type ForecastOptions struct {
	Window     time.Duration // history fed to the regression
	Horizon    time.Duration // how far ahead to extrapolate
	WarnMB     float64
	CriticalMB float64
}

// Forecaster extrapolates memory usage with the backend's linear
// regression rather than fetching raw series and fitting locally.
type Forecaster struct {
	source  datasource.MetricsSource
	queries *Queries
	opts    ForecastOptions
}

func NewForecaster(source datasource.MetricsSource, target Target, opts ForecastOptions) *Forecaster {
	if opts.Window <= 0 {
		opts.Window = time.Hour
	}
	if opts.Horizon <= 0 {
		opts.Horizon = time.Hour
	}
	if opts.WarnMB <= 0 {
		opts.WarnMB = 200
	}
	if opts.CriticalMB <= 0 {
		opts.CriticalMB = 250
	}
	return &Forecaster{
		source:  source,
		queries: NewQueries(target),
		opts:    opts,
	}
}

// MemoryForecast predicts working-set memory one horizon from now. An
// absent result means the backend has not yet accumulated a full window
// of history, which is normal right after a deployment.
func (f *Forecaster) MemoryForecast(ctx context.Context) (models.ForecastResult, error) {
	result := models.ForecastResult{
		Metric:         "container_memory_working_set_bytes",
		HorizonSeconds: int(f.opts.Horizon.Seconds()),
		Unit:           models.UnitBytes,
	}

	expr := f.queries.MemoryForecast(f.opts.Window, f.opts.Horizon)
	sample, err := f.source.QueryFirst(ctx, expr)
	if err != nil {
		if errors.Is(err, datasource.ErrBackendUnreachable) {
			return result, err
		}
		fmt.Printf("[WARN] Could not query memory forecast: %v\n", err)
		sample = models.Absent()
	}

	result.Predicted = sample
	if !sample.Present {
		result.Reason = fmt.Sprintf("need %s of history", promDuration(f.opts.Window))
	}
	return result, nil
}

// PodForecasts predicts each pod's working-set memory and grades it
// against the container memory limit tiers.
func (f *Forecaster) PodForecasts(ctx context.Context) ([]models.PodForecast, error) {
	expr := f.queries.MemoryForecast(f.opts.Window, f.opts.Horizon)
	series, err := f.source.QuerySeries(ctx, expr)
	if err != nil {
		if errors.Is(err, datasource.ErrBackendUnreachable) {
			return nil, err
		}
		fmt.Printf("[WARN] Could not query per-pod memory forecast: %v\n", err)
		return []models.PodForecast{}, nil
	}

	forecasts := make([]models.PodForecast, 0, len(series))
	for _, s := range series {
		if !s.Sample.Present {
			continue
		}
		mb := s.Sample.Value / 1024 / 1024
		forecasts = append(forecasts, models.PodForecast{
			Pod:         s.Pod,
			PredictedMB: mb,
			Severity:    f.classifyMB(mb),
		})
	}
	return forecasts, nil
}

func (f *Forecaster) classifyMB(mb float64) models.ForecastSeverity {
	switch {
	case mb > f.opts.CriticalMB:
		return models.ForecastCritical
	case mb > f.opts.WarnMB:
		return models.ForecastWarning
	default:
		return models.ForecastOK
	}
}
