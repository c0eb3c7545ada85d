package analyzer

import (
	"fmt"
	"time"
)

// Target identifies the workload under observation and how its
// application metrics are named in the backend.
type Target struct {
	Namespace    string
	Deployment   string
	Service      string
	MetricPrefix string
}

// PodPattern returns the regex matching the target's pod names.
func (t Target) PodPattern() string {
	return t.Deployment + ".*"
}

// Queries builds the PromQL expressions for a target. Centralizing them
// here keeps the label conventions in one place.
type Queries struct {
	target Target
}

func NewQueries(target Target) *Queries {
	return &Queries{target: target}
}

// PodCount counts service endpoints currently reporting up.
func (q *Queries) PodCount() string {
	return fmt.Sprintf(`count(up{service="%s", namespace="%s"} == 1)`,
		q.target.Service, q.target.Namespace)
}

// RequestRate sums the per-second request rate across all pods.
func (q *Queries) RequestRate() string {
	return fmt.Sprintf(`sum(rate(%s_requests_total{namespace="%s"}[1m]))`,
		q.target.MetricPrefix, q.target.Namespace)
}

// ErrorRate sums the per-second rate of 5xx responses.
func (q *Queries) ErrorRate() string {
	return fmt.Sprintf(`sum(rate(%s_requests_total{namespace="%s", status=~"5.."}[1m]))`,
		q.target.MetricPrefix, q.target.Namespace)
}

// ResponseTimeAvg is the recording rule for average response time.
func (q *Queries) ResponseTimeAvg() string {
	return fmt.Sprintf("%s:response_time:avg", q.target.MetricPrefix)
}

// MemoryForecast extrapolates working-set bytes `horizon` ahead using
// `window` of history. The regression runs backend-side.
func (q *Queries) MemoryForecast(window, horizon time.Duration) string {
	return fmt.Sprintf(`predict_linear(container_memory_working_set_bytes{namespace="%s", pod=~"%s"}[%s], %d)`,
		q.target.Namespace, q.target.PodPattern(), promDuration(window), int(horizon.Seconds()))
}

// Restarts returns the per-container restart counters for the namespace.
func (q *Queries) Restarts() string {
	return fmt.Sprintf(`kube_pod_container_status_restarts_total{namespace="%s"}`, q.target.Namespace)
}

// ResponseTrend is the per-second derivative of average response time.
func (q *Queries) ResponseTrend() string {
	return fmt.Sprintf("deriv(%s[10m])", q.ResponseTimeAvg())
}

// promDuration renders a duration in PromQL range syntax.
func promDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
