package analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/datasource"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// stubSource serves canned samples keyed by expression. Unknown
// expressions resolve absent, matching backend behavior for metrics
// that do not exist yet.
type stubSource struct {
	samples     map[string]models.MetricSample
	series      map[string][]models.PodSample
	ranges      map[string][]models.MetricSample
	failing     map[string]bool
	unreachable bool
}

func (s *stubSource) Query(ctx context.Context, expr string) (models.MetricSample, error) {
	if s.unreachable {
		return models.Absent(), fmt.Errorf("%w: probe failed", datasource.ErrBackendUnreachable)
	}
	if s.failing[expr] {
		return models.Absent(), fmt.Errorf("%w: %q: boom", datasource.ErrQueryFailed, expr)
	}
	if sample, ok := s.samples[expr]; ok {
		return sample, nil
	}
	return models.Absent(), nil
}

func (s *stubSource) QueryFirst(ctx context.Context, expr string) (models.MetricSample, error) {
	return s.Query(ctx, expr)
}

func (s *stubSource) QuerySeries(ctx context.Context, expr string) ([]models.PodSample, error) {
	if s.unreachable {
		return nil, fmt.Errorf("%w: probe failed", datasource.ErrBackendUnreachable)
	}
	if s.failing[expr] {
		return nil, fmt.Errorf("%w: %q: boom", datasource.ErrQueryFailed, expr)
	}
	return s.series[expr], nil
}

func (s *stubSource) QueryRange(ctx context.Context, expr string, window, step time.Duration) ([]models.MetricSample, error) {
	if s.unreachable {
		return nil, fmt.Errorf("%w: probe failed", datasource.ErrBackendUnreachable)
	}
	if s.failing[expr] {
		return nil, fmt.Errorf("%w: %q: boom", datasource.ErrQueryFailed, expr)
	}
	return s.ranges[expr], nil
}

func (s *stubSource) IsAvailable(ctx context.Context) bool { return !s.unreachable }
func (s *stubSource) Name() string                         { return "stub" }

func testTarget() Target {
	return Target{
		Namespace:    "microservice",
		Deployment:   "fastapi-app",
		Service:      "fastapi-app-service",
		MetricPrefix: "fastapi",
	}
}

func TestQueriesMatchMonitoringConventions(t *testing.T) {
	q := NewQueries(testTarget())

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"pod count", q.PodCount(),
			`count(up{service="fastapi-app-service", namespace="microservice"} == 1)`},
		{"request rate", q.RequestRate(),
			`sum(rate(fastapi_requests_total{namespace="microservice"}[1m]))`},
		{"error rate", q.ErrorRate(),
			`sum(rate(fastapi_requests_total{namespace="microservice", status=~"5.."}[1m]))`},
		{"response time avg", q.ResponseTimeAvg(),
			`fastapi:response_time:avg`},
		{"memory forecast", q.MemoryForecast(time.Hour, time.Hour),
			`predict_linear(container_memory_working_set_bytes{namespace="microservice", pod=~"fastapi-app.*"}[1h], 3600)`},
		{"restarts", q.Restarts(),
			`kube_pod_container_status_restarts_total{namespace="microservice"}`},
		{"response trend", q.ResponseTrend(),
			`deriv(fastapi:response_time:avg[10m])`},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s query mismatch:\n  got:  %s\n  want: %s", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollectCurrent(t *testing.T) {
	q := NewQueries(testTarget())
	now := time.Now()
	source := &stubSource{
		samples: map[string]models.MetricSample{
			q.PodCount():        models.Sample(2, now),
			q.RequestRate():     models.Sample(2.5, now),
			q.ErrorRate():       models.Sample(0.0042, now),
			q.ResponseTimeAvg(): models.Sample(0.31, now),
		},
	}

	a := New(source, testTarget(), false)
	current, err := a.CollectCurrent(context.Background())
	if err != nil {
		t.Fatalf("CollectCurrent failed: %v", err)
	}

	if !current.PodCount.Present || current.PodCount.Value != 2 {
		t.Errorf("Unexpected pod count: %+v", current.PodCount)
	}
	if current.RequestRate.FormatCompact() != "2.5" {
		t.Errorf("Expected request rate 2.5, got %s", current.RequestRate.FormatCompact())
	}
	if current.ErrorRate.Format("%.4f") != "0.0042" {
		t.Errorf("Expected error rate 0.0042, got %s", current.ErrorRate.Format("%.4f"))
	}
}

func TestCollectCurrentAbsentStaysAbsent(t *testing.T) {
	a := New(&stubSource{}, testTarget(), false)

	current, err := a.CollectCurrent(context.Background())
	if err != nil {
		t.Fatalf("CollectCurrent failed: %v", err)
	}

	if current.RequestRate.Present {
		t.Error("Expected absent request rate when backend has no data")
	}
	if got := current.RequestRate.Format("%.2f"); got != "N/A" {
		t.Errorf("Expected N/A display for absent sample, got %q", got)
	}
}

func TestCollectCurrentDowngradesQueryFailure(t *testing.T) {
	q := NewQueries(testTarget())
	source := &stubSource{
		samples: map[string]models.MetricSample{
			q.PodCount(): models.Sample(2, time.Now()),
		},
		failing: map[string]bool{q.RequestRate(): true},
	}

	a := New(source, testTarget(), false)
	current, err := a.CollectCurrent(context.Background())
	if err != nil {
		t.Fatalf("Expected contained failure, got error: %v", err)
	}

	if current.RequestRate.Present {
		t.Error("Expected failed query to resolve absent")
	}
	if !current.PodCount.Present {
		t.Error("Expected unaffected queries to still resolve")
	}
}

func TestCollectCurrentUnreachableBackendAborts(t *testing.T) {
	a := New(&stubSource{unreachable: true}, testTarget(), false)

	_, err := a.CollectCurrent(context.Background())
	if !errors.Is(err, datasource.ErrBackendUnreachable) {
		t.Fatalf("Expected BackendUnreachable, got %v", err)
	}
}

func TestClassifyRestarts(t *testing.T) {
	tests := []struct {
		restarts int
		want     models.RiskLevel
	}{
		{0, models.RiskStable},
		{2, models.RiskStable},
		{3, models.RiskMedium},
		{5, models.RiskMedium},
		{6, models.RiskHigh},
		{10, models.RiskHigh},
		{11, models.RiskCritical},
	}

	for _, tt := range tests {
		if got := ClassifyRestarts(tt.restarts); got != tt.want {
			t.Errorf("ClassifyRestarts(%d) = %s, want %s", tt.restarts, got, tt.want)
		}
	}
}

func TestClassifyTrend(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		slope models.MetricSample
		want  models.TrendSeverity
	}{
		{"absent", models.Absent(), models.TrendUnknown},
		{"degrading", models.Sample(0.002, now), models.TrendWarning},
		{"slight increase", models.Sample(0.0005, now), models.TrendNotice},
		{"flat", models.Sample(0, now), models.TrendOK},
		{"improving", models.Sample(-0.001, now), models.TrendOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTrend(tt.slope); got != tt.want {
				t.Errorf("ClassifyTrend(%v) = %s, want %s", tt.slope, got, tt.want)
			}
		})
	}
}

func TestAnalyzeFlagsHighRiskPods(t *testing.T) {
	q := NewQueries(testTarget())
	now := time.Now()
	source := &stubSource{
		samples: map[string]models.MetricSample{
			q.PodCount(): models.Sample(2, now),
		},
		series: map[string][]models.PodSample{
			q.Restarts(): {
				{Pod: "fastapi-app-7d9f-x2k4", Sample: models.Sample(12, now)},
				{Pod: "fastapi-app-7d9f-m1q8", Sample: models.Sample(1, now)},
			},
		},
	}

	a := New(source, testTarget(), false)
	report, err := a.Analyze(context.Background())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(report.RestartRisks) != 2 {
		t.Fatalf("Expected 2 restart risks, got %d", len(report.RestartRisks))
	}
	if len(report.HighRiskPods) != 1 || report.HighRiskPods[0] != "fastapi-app-7d9f-x2k4" {
		t.Errorf("Expected only the crashing pod flagged, got %v", report.HighRiskPods)
	}
	if report.RestartRisks[0].Risk != models.RiskCritical {
		t.Errorf("Expected CRITICAL for 12 restarts, got %s", report.RestartRisks[0].Risk)
	}
}

func TestSummariesSkipsMetricsWithoutHistory(t *testing.T) {
	q := NewQueries(testTarget())
	now := time.Now()
	source := &stubSource{
		ranges: map[string][]models.MetricSample{
			q.RequestRate(): {
				models.Sample(1.0, now.Add(-2*time.Minute)),
				models.Sample(2.0, now.Add(-time.Minute)),
				models.Sample(3.0, now),
			},
		},
	}

	a := New(source, testTarget(), false)
	summaries, err := a.Summaries(context.Background(), 30*time.Minute, time.Minute)
	if err != nil {
		t.Fatalf("Summaries failed: %v", err)
	}

	if len(summaries) != 1 {
		t.Fatalf("Expected 1 summary, got %d", len(summaries))
	}
	s := summaries[0]
	if s.Metric != "request_rate" || s.SampleCount != 3 {
		t.Errorf("Unexpected summary: %+v", s)
	}
	if s.Stats.Average != 2.0 || s.Stats.Min != 1.0 || s.Stats.Peak != 3.0 {
		t.Errorf("Unexpected stats: %+v", s.Stats)
	}
}
