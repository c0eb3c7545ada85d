package models

import "time"

// RiskLevel classifies a pod's crash risk from its restart history.
type RiskLevel string

const (
	RiskStable   RiskLevel = "STABLE"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// PodRestartRisk is one pod's restart count and its classification.
type PodRestartRisk struct {
	Pod      string
	Restarts int
	Risk     RiskLevel
}

// TrendSeverity classifies the response-time derivative.
type TrendSeverity string

const (
	TrendOK      TrendSeverity = "OK"
	TrendNotice  TrendSeverity = "NOTICE"
	TrendWarning TrendSeverity = "WARNING"
	TrendUnknown TrendSeverity = "UNKNOWN"
)

// TrendAssessment is the response-time trend check outcome.
type TrendAssessment struct {
	Slope    MetricSample
	Severity TrendSeverity
}

// AnalysisReport bundles one performance-analysis pass over the target
// workload. Sections with no data carry absent samples or empty slices;
// the reporter renders those as N/A lines rather than dropping them.
type AnalysisReport struct {
	GeneratedAt time.Time
	Namespace   string
	Workload    string

	Current         CurrentMetrics
	RestartRisks    []PodRestartRisk
	HighRiskPods    []string
	MemoryForecast  ForecastResult
	PodForecasts    []PodForecast
	ResponseTrend   TrendAssessment
	LiveUsage       []PodResourceUsage
	History         []RangeSummary
	Recommendations []Recommendation
}
