package models

import "fmt"

// Unit is the native unit of a forecast metric.
type Unit string

const (
	UnitBytes   Unit = "bytes"
	UnitSeconds Unit = "seconds"
	UnitCount   Unit = "count"
)

// ForecastResult is the outcome of one linear-extrapolation query.
// Predicted is absent when the backend has less history than the
// source window requires; Reason then explains why.
type ForecastResult struct {
	Metric         string
	HorizonSeconds int
	Unit           Unit
	Predicted      MetricSample
	Reason         string
}

// PredictedMB converts a bytes forecast to megabytes. The raw value in
// Predicted stays untouched for threshold comparisons.
func (f ForecastResult) PredictedMB() float64 {
	return f.Predicted.Value / (1024 * 1024)
}

// HorizonLabel renders the horizon compactly, e.g. "1h" or "30m".
func (f ForecastResult) HorizonLabel() string {
	switch {
	case f.HorizonSeconds%3600 == 0:
		return fmt.Sprintf("%dh", f.HorizonSeconds/3600)
	case f.HorizonSeconds%60 == 0:
		return fmt.Sprintf("%dm", f.HorizonSeconds/60)
	default:
		return fmt.Sprintf("%ds", f.HorizonSeconds)
	}
}

// DisplayValue renders the predicted value with its unit, or "N/A" with
// the reason when absent. A numeric forecast is never shown without its
// unit; the horizon is rendered by the caller next to the metric name.
func (f ForecastResult) DisplayValue() string {
	if !f.Predicted.Present {
		if f.Reason != "" {
			return fmt.Sprintf("N/A (%s)", f.Reason)
		}
		return "N/A"
	}

	switch f.Unit {
	case UnitBytes:
		return fmt.Sprintf("%.1f MB", f.PredictedMB())
	case UnitSeconds:
		return fmt.Sprintf("%.3fs", f.Predicted.Value)
	default:
		return fmt.Sprintf("%.0f", f.Predicted.Value)
	}
}

// ForecastSeverity classifies a per-pod memory forecast against the
// deployment limit.
type ForecastSeverity string

const (
	ForecastOK       ForecastSeverity = "OK"
	ForecastWarning  ForecastSeverity = "WARNING"
	ForecastCritical ForecastSeverity = "CRITICAL"
)

// PodForecast is one pod's predicted memory use at the forecast horizon.
type PodForecast struct {
	Pod         string
	PredictedMB float64
	Severity    ForecastSeverity
}
