package analyzer

import (
	"fmt"
	"math"
	"sort"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// CalculateStats computes average, min, peak, and P95 from samples.
// Absent samples are excluded from the calculation.
func CalculateStats(samples []models.MetricSample) (models.Stats, error) {
	if len(samples) == 0 {
		return models.Stats{}, fmt.Errorf("no samples provided")
	}

	values := make([]float64, 0, len(samples))
	for _, sample := range samples {
		if !sample.Present {
			continue
		}
		values = append(values, sample.Value)
	}
	if len(values) == 0 {
		return models.Stats{}, fmt.Errorf("no present samples")
	}

	sort.Float64s(values)

	return models.Stats{
		Average: calculateAverage(values),
		Min:     values[0],
		Peak:    values[len(values)-1],
		P95:     calculatePercentile(values, 95),
	}, nil
}

// calculatePercentile computes the Nth percentile using linear interpolation
func calculatePercentile(sortedValues []float64, percentile float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	n := float64(len(sortedValues))
	rank := (percentile / 100.0) * (n - 1)

	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))

	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	// Linear interpolation between the two values
	lowerValue := sortedValues[lowerIndex]
	upperValue := sortedValues[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

// calculateAverage computes the mean of values
func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
