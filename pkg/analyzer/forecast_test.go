package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

func TestMemoryForecastAbsentNeedsHistory(t *testing.T) {
	f := NewForecaster(&stubSource{}, testTarget(), ForecastOptions{})

	result, err := f.MemoryForecast(context.Background())
	if err != nil {
		t.Fatalf("MemoryForecast failed: %v", err)
	}

	if result.Predicted.Present {
		t.Fatal("Expected absent prediction when backend has no history")
	}
	if result.Reason != "need 1h of history" {
		t.Errorf("Unexpected reason: %q", result.Reason)
	}
	if got := result.DisplayValue(); got != "N/A (need 1h of history)" {
		t.Errorf("Unexpected display value: %q", got)
	}
}

func TestMemoryForecastPresent(t *testing.T) {
	target := testTarget()
	q := NewQueries(target)
	expr := q.MemoryForecast(time.Hour, time.Hour)

	source := &stubSource{
		samples: map[string]models.MetricSample{
			expr: models.Sample(230*1024*1024, time.Now()),
		},
	}

	f := NewForecaster(source, target, ForecastOptions{})
	result, err := f.MemoryForecast(context.Background())
	if err != nil {
		t.Fatalf("MemoryForecast failed: %v", err)
	}

	if !result.Predicted.Present {
		t.Fatal("Expected present prediction")
	}
	if got := result.PredictedMB(); got != 230 {
		t.Errorf("Expected 230 MB, got %v", got)
	}
	if got := result.DisplayValue(); got != "230.0 MB" {
		t.Errorf("Unexpected display value: %q", got)
	}
	if result.HorizonLabel() != "1h" {
		t.Errorf("Expected 1h horizon label, got %s", result.HorizonLabel())
	}
}

func TestPodForecastsClassification(t *testing.T) {
	target := testTarget()
	q := NewQueries(target)
	expr := q.MemoryForecast(time.Hour, time.Hour)
	now := time.Now()

	source := &stubSource{
		series: map[string][]models.PodSample{
			expr: {
				{Pod: "fastapi-app-a", Sample: models.Sample(260*1024*1024, now)},
				{Pod: "fastapi-app-b", Sample: models.Sample(210*1024*1024, now)},
				{Pod: "fastapi-app-c", Sample: models.Sample(100*1024*1024, now)},
			},
		},
	}

	f := NewForecaster(source, target, ForecastOptions{})
	forecasts, err := f.PodForecasts(context.Background())
	if err != nil {
		t.Fatalf("PodForecasts failed: %v", err)
	}

	if len(forecasts) != 3 {
		t.Fatalf("Expected 3 forecasts, got %d", len(forecasts))
	}

	want := []models.ForecastSeverity{
		models.ForecastCritical,
		models.ForecastWarning,
		models.ForecastOK,
	}
	for i, fc := range forecasts {
		if fc.Severity != want[i] {
			t.Errorf("Pod %s: expected %s, got %s", fc.Pod, want[i], fc.Severity)
		}
	}
}

func TestPodForecastsEmptyWhenNoData(t *testing.T) {
	f := NewForecaster(&stubSource{}, testTarget(), ForecastOptions{})

	forecasts, err := f.PodForecasts(context.Background())
	if err != nil {
		t.Fatalf("PodForecasts failed: %v", err)
	}
	if len(forecasts) != 0 {
		t.Errorf("Expected no forecasts, got %d", len(forecasts))
	}
}

func TestCalculateStats(t *testing.T) {
	now := time.Now()
	samples := []models.MetricSample{
		models.Sample(1.0, now),
		models.Sample(2.0, now),
		models.Sample(3.0, now),
		models.Sample(4.0, now),
		models.Absent(),
	}

	stats, err := CalculateStats(samples)
	if err != nil {
		t.Fatalf("CalculateStats failed: %v", err)
	}

	if stats.Average != 2.5 {
		t.Errorf("Expected average 2.5, got %v", stats.Average)
	}
	if stats.Min != 1.0 || stats.Peak != 4.0 {
		t.Errorf("Unexpected min/peak: %+v", stats)
	}
	if stats.P95 < 3.8 || stats.P95 > 4.0 {
		t.Errorf("Unexpected P95: %v", stats.P95)
	}
}

func TestCalculateStatsNoSamples(t *testing.T) {
	if _, err := CalculateStats(nil); err == nil {
		t.Error("Expected error for empty input")
	}
	if _, err := CalculateStats([]models.MetricSample{models.Absent()}); err == nil {
		t.Error("Expected error when all samples absent")
	}
}
