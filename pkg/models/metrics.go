package models

import (
	"fmt"
	"strconv"
	"time"
)

// MetricSample is a single value fetched from the metrics backend.
// A query that returns no data produces a sample with Present=false;
// that is a valid outcome, not an error, and must never be displayed
// as zero.
type MetricSample struct {
	Value     float64
	Timestamp time.Time
	Present   bool
}

// Sample builds a present sample.
func Sample(value float64, ts time.Time) MetricSample {
	return MetricSample{Value: value, Timestamp: ts, Present: true}
}

// Absent builds an absent sample.
func Absent() MetricSample {
	return MetricSample{}
}

// Format renders the sample with the given verb, or "N/A" when absent.
func (s MetricSample) Format(verb string) string {
	if !s.Present {
		return "N/A"
	}
	return fmt.Sprintf(verb, s.Value)
}

// FormatInt renders the sample as a whole number, or "N/A" when absent.
func (s MetricSample) FormatInt() string {
	if !s.Present {
		return "N/A"
	}
	return fmt.Sprintf("%d", int64(s.Value))
}

// FormatCompact renders the sample with the shortest exact decimal
// form ("2.5", not "2.50"), or "N/A" when absent.
func (s MetricSample) FormatCompact() string {
	if !s.Present {
		return "N/A"
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// PodSample is one instant sample labeled with its pod name.
type PodSample struct {
	Pod    string
	Sample MetricSample
}

// Stats summarizes a series of samples.
type Stats struct {
	Average float64
	Min     float64
	Peak    float64
	P95     float64
}

// RangeSummary is the statistical summary of one metric over a range query.
type RangeSummary struct {
	Metric      string
	Window      time.Duration
	Step        time.Duration
	SampleCount int
	Stats       Stats
}

// CurrentMetrics holds the instant health snapshot of the target workload.
type CurrentMetrics struct {
	PodCount        MetricSample
	RequestRate     MetricSample
	ErrorRate       MetricSample
	ResponseTimeAvg MetricSample
}

// PodResourceUsage is one container's live usage as reported by metrics-server.
type PodResourceUsage struct {
	Pod           string
	Container     string
	CPUMillicores int64
	MemoryBytes   int64
}
