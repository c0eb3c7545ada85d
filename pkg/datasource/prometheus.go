package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

const defaultTimeout = 5 * time.Second

// PrometheusSource queries a Prometheus-compatible backend over HTTP
// using the official client. The first call runs a cheap reachability
// probe; once the probe fails, every later query fails fast with
// ErrBackendUnreachable instead of waiting out a per-query timeout.
type PrometheusSource struct {
	client  v1.API
	url     string
	timeout time.Duration

	probeOnce sync.Once
	probeErr  error
}

func NewPrometheusSource(url string, timeout time.Duration) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: url,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &PrometheusSource{
		client:  v1.NewAPI(client),
		url:     url,
		timeout: timeout,
	}, nil
}

// RulesAPI exposes the alert-rule inventory endpoint for the signal
// collector without handing it the whole query surface.
func (p *PrometheusSource) RulesAPI() v1.API {
	return p.client
}

func (p *PrometheusSource) ensureReachable(ctx context.Context) error {
	p.probeOnce.Do(func() {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		if _, _, err := p.client.Query(probeCtx, "up", time.Now()); err != nil {
			p.probeErr = fmt.Errorf("%w: %s: %v", ErrBackendUnreachable, p.url, err)
		}
	})
	return p.probeErr
}

// Query evaluates an instant query and returns a single sample using
// the scalar rule: when several series match, the last reported value
// wins. Empty results yield an absent sample, not an error.
func (p *PrometheusSource) Query(ctx context.Context, expr string) (models.MetricSample, error) {
	vector, err := p.queryVector(ctx, expr)
	if err != nil {
		return models.Absent(), err
	}
	if len(vector) == 0 {
		return models.Absent(), nil
	}

	last := vector[len(vector)-1]
	return models.Sample(float64(last.Value), last.Timestamp.Time()), nil
}

// QueryFirst evaluates an instant query and returns the first vector
// sample. Forecast expressions expect this rule.
func (p *PrometheusSource) QueryFirst(ctx context.Context, expr string) (models.MetricSample, error) {
	vector, err := p.queryVector(ctx, expr)
	if err != nil {
		return models.Absent(), err
	}
	if len(vector) == 0 {
		return models.Absent(), nil
	}

	first := vector[0]
	return models.Sample(float64(first.Value), first.Timestamp.Time()), nil
}

// QuerySeries evaluates an instant query and returns every matching
// series labeled with its pod name.
func (p *PrometheusSource) QuerySeries(ctx context.Context, expr string) ([]models.PodSample, error) {
	vector, err := p.queryVector(ctx, expr)
	if err != nil {
		return nil, err
	}

	samples := make([]models.PodSample, 0, len(vector))
	for _, s := range vector {
		pod := string(s.Metric["pod"])
		if pod == "" {
			pod = "unknown"
		}
		samples = append(samples, models.PodSample{
			Pod:    pod,
			Sample: models.Sample(float64(s.Value), s.Timestamp.Time()),
		})
	}

	return samples, nil
}

// QueryRange evaluates a range query over the trailing window and
// returns the flattened samples. An empty matrix is an empty slice.
func (p *PrometheusSource) QueryRange(ctx context.Context, expr string, window, step time.Duration) ([]models.MetricSample, error) {
	if err := p.ensureReachable(ctx); err != nil {
		return nil, err
	}

	end := time.Now()
	r := v1.Range{
		Start: end.Add(-window),
		End:   end,
		Step:  step,
	}

	queryCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, warnings, err := p.client.QueryRange(queryCtx, expr, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrQueryFailed, expr, err)
	}
	if len(warnings) > 0 {
		fmt.Printf("[WARN] Prometheus: %v\n", warnings)
	}

	matrix, ok := result.(model.Matrix)
	if !ok {
		return []models.MetricSample{}, nil
	}

	var samples []models.MetricSample
	for _, series := range matrix {
		for _, value := range series.Values {
			samples = append(samples, models.Sample(float64(value.Value), value.Timestamp.Time()))
		}
	}
	if samples == nil {
		samples = []models.MetricSample{}
	}

	return samples, nil
}

func (p *PrometheusSource) queryVector(ctx context.Context, expr string) (model.Vector, error) {
	if err := p.ensureReachable(ctx); err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, warnings, err := p.client.Query(queryCtx, expr, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrQueryFailed, expr, err)
	}
	if len(warnings) > 0 {
		fmt.Printf("[WARN] Prometheus: %v\n", warnings)
	}

	switch v := result.(type) {
	case model.Vector:
		return v, nil
	case *model.Scalar:
		return model.Vector{{Value: v.Value, Timestamp: v.Timestamp}}, nil
	default:
		return model.Vector{}, nil
	}
}

// IsAvailable probes the backend. The verdict is cached: a short-lived
// verification run does not wait for a dead backend more than once.
func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	return p.ensureReachable(ctx) == nil
}

func (p *PrometheusSource) Name() string {
	return "Prometheus"
}
