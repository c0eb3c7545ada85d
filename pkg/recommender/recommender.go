package recommender

import (
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// Metric names a threshold can reference. The table is data-driven, so
// operators can add rows in the thresholds file using these keys.
const (
	MetricPodCount     = "pod_count"
	MetricRequestRate  = "request_rate"
	MetricErrorRate    = "error_rate"
	MetricResponseTime = "response_time_avg"
)

// Engine evaluates a threshold table against collected metrics.
// Thresholds are checked in declaration order and each firing row
// contributes its recommendation.
type Engine struct {
	thresholds []models.Threshold
}

func New(thresholds []models.Threshold) *Engine {
	return &Engine{thresholds: thresholds}
}

// DefaultThresholds is the operational baseline for the service:
// response time, error rate, and the replica floor.
func DefaultThresholds(expectedMinPods int) []models.Threshold {
	return []models.Threshold{
		{
			Metric:         MetricResponseTime,
			Comparator:     models.CompareGT,
			Limit:          0.5,
			Recommendation: "Consider adding caching or optimizing queries",
		},
		{
			Metric:         MetricErrorRate,
			Comparator:     models.CompareGT,
			Limit:          0.01,
			Recommendation: "Check application logs for recurring errors",
		},
		{
			Metric:         MetricPodCount,
			Comparator:     models.CompareLT,
			Limit:          float64(expectedMinPods),
			Recommendation: "Check deployment health and replica configuration",
		},
	}
}

// Evaluate runs every threshold against the sample it names. Absent
// samples cannot be compared and are skipped. Comparisons are strict,
// so a value sitting exactly on its limit does not fire.
func (e *Engine) Evaluate(current models.CurrentMetrics) []models.Recommendation {
	recommendations := []models.Recommendation{}

	for _, t := range e.thresholds {
		sample, ok := lookup(current, t.Metric)
		if !ok || !sample.Present {
			continue
		}
		if !exceeded(sample.Value, t.Comparator, t.Limit) {
			continue
		}

		recommendations = append(recommendations, models.Recommendation{
			Metric:     t.Metric,
			Value:      sample.Value,
			Limit:      t.Limit,
			Comparator: t.Comparator,
			Message:    t.Recommendation,
		})
	}

	return recommendations
}

// lookup resolves a threshold's metric name to the matching sample.
// Unknown names are skipped so a stale thresholds file cannot crash an
// analysis run.
func lookup(current models.CurrentMetrics, metric string) (models.MetricSample, bool) {
	switch metric {
	case MetricPodCount:
		return current.PodCount, true
	case MetricRequestRate:
		return current.RequestRate, true
	case MetricErrorRate:
		return current.ErrorRate, true
	case MetricResponseTime:
		return current.ResponseTimeAvg, true
	default:
		return models.MetricSample{}, false
	}
}

func exceeded(value float64, comparator models.Comparator, limit float64) bool {
	switch comparator {
	case models.CompareGT:
		return value > limit
	case models.CompareLT:
		return value < limit
	default:
		return false
	}
}
