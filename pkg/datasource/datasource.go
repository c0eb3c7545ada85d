package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// Backend failure taxonomy. Unreachable is fatal to analysis-dependent
// steps and fails fast; a failed query on a reachable backend is
// downgraded by callers to an absent display value.
var (
	ErrBackendUnreachable = errors.New("metrics backend unreachable")
	ErrQueryFailed        = errors.New("metrics query failed")
)

// MetricsSource defines the interface for querying metric values.
//
// Query applies the scalar selection rule (last reported value when
// multiple series match a loose label set); QueryFirst applies the
// vector rule (first series, used for forecast expressions). Absent
// data is a valid result on all methods, never an error.
type MetricsSource interface {
	Query(ctx context.Context, expr string) (models.MetricSample, error)
	QueryFirst(ctx context.Context, expr string) (models.MetricSample, error)
	QuerySeries(ctx context.Context, expr string) ([]models.PodSample, error)
	QueryRange(ctx context.Context, expr string, window, step time.Duration) ([]models.MetricSample, error)
	IsAvailable(ctx context.Context) bool
	Name() string
}
