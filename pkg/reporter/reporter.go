package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/chaos"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

const bannerWidth = 60

func banner(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", bannerWidth))
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n=== %s ===\n\n", title)
}

// RenderAnalysis writes the performance analysis report as plain text.
// Absent samples render as N/A so missing data is never mistaken for a
// healthy zero.
func RenderAnalysis(w io.Writer, report *models.AnalysisReport, limitMB float64) {
	banner(w)
	fmt.Fprintf(w, "%s/%s - Failure Prediction Report\n", report.Namespace, report.Workload)
	banner(w)
	fmt.Fprintf(w, "Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))

	section(w, "Current System Metrics")
	fmt.Fprintf(w, "Running Pods: %s\n", report.Current.PodCount.FormatInt())
	fmt.Fprintf(w, "Request Rate: %s req/s\n", report.Current.RequestRate.FormatCompact())
	fmt.Fprintf(w, "Error Rate: %s req/s\n", report.Current.ErrorRate.Format("%.4f"))
	fmt.Fprintf(w, "Avg Response Time: %s\n", report.Current.ResponseTimeAvg.Format("%.3fs"))

	section(w, "Pod Crash Risk Prediction")
	if len(report.RestartRisks) == 0 {
		fmt.Fprintln(w, "No pod data available")
	}
	for _, risk := range report.RestartRisks {
		switch risk.Risk {
		case models.RiskCritical:
			fmt.Fprintf(w, "CRITICAL: Pod %s (restarts=%d) - Immediate attention needed\n", risk.Pod, risk.Restarts)
		case models.RiskHigh:
			fmt.Fprintf(w, "HIGH: Pod %s (restarts=%d) - Monitor closely\n", risk.Pod, risk.Restarts)
		case models.RiskMedium:
			fmt.Fprintf(w, "MEDIUM: Pod %s (restarts=%d) - Watch for trends\n", risk.Pod, risk.Restarts)
		default:
			fmt.Fprintf(w, "STABLE: Pod %s (restarts=%d)\n", risk.Pod, risk.Restarts)
		}
	}

	section(w, "Memory Usage Prediction")
	fmt.Fprintf(w, "Predicted Memory (%s): %s\n", report.MemoryForecast.HorizonLabel(), report.MemoryForecast.DisplayValue())
	for _, pf := range report.PodForecasts {
		switch pf.Severity {
		case models.ForecastCritical:
			fmt.Fprintf(w, "CRITICAL: Pod %s predicted to use %.1fMB in %s (limit: %.0fMB)\n",
				pf.Pod, pf.PredictedMB, report.MemoryForecast.HorizonLabel(), limitMB)
		case models.ForecastWarning:
			fmt.Fprintf(w, "WARNING: Pod %s predicted to use %.1fMB in %s\n",
				pf.Pod, pf.PredictedMB, report.MemoryForecast.HorizonLabel())
		default:
			fmt.Fprintf(w, "OK: Pod %s predicted to use %.1fMB in %s\n",
				pf.Pod, pf.PredictedMB, report.MemoryForecast.HorizonLabel())
		}
	}

	section(w, "Response Time Trend Analysis")
	switch report.ResponseTrend.Severity {
	case models.TrendWarning:
		fmt.Fprintf(w, "WARNING: Response time is degrading (%.6fs/s increase)\n", report.ResponseTrend.Slope.Value)
	case models.TrendNotice:
		fmt.Fprintf(w, "NOTICE: Slight response time increase detected (%.6fs/s)\n", report.ResponseTrend.Slope.Value)
	case models.TrendOK:
		fmt.Fprintln(w, "OK: Response time is stable or improving")
	default:
		fmt.Fprintln(w, "No response time data available yet (need recording rules active)")
	}

	if len(report.History) > 0 {
		section(w, "Recent History")
		for _, summary := range report.History {
			fmt.Fprintf(w, "%s over %s: avg=%.4f min=%.4f peak=%.4f p95=%.4f (%d samples)\n",
				summary.Metric, summary.Window, summary.Stats.Average, summary.Stats.Min,
				summary.Stats.Peak, summary.Stats.P95, summary.SampleCount)
		}
	}

	if len(report.LiveUsage) > 0 {
		section(w, "Live Resource Usage")
		for _, usage := range report.LiveUsage {
			fmt.Fprintf(w, "%s/%s: %dm CPU, %dMi memory\n",
				usage.Pod, usage.Container, usage.CPUMillicores, usage.MemoryBytes/(1024*1024))
		}
	}

	if len(report.Recommendations) > 0 {
		section(w, "Recommendations")
		for _, rec := range report.Recommendations {
			fmt.Fprintln(w, rec.String())
		}
	}

	fmt.Fprintln(w)
	banner(w)
	fmt.Fprintln(w, "SUMMARY")
	banner(w)

	if len(report.HighRiskPods) > 0 {
		fmt.Fprintf(w, "\nWARNING: %d pod(s) at high crash risk: %s\n",
			len(report.HighRiskPods), strings.Join(report.HighRiskPods, ", "))
		fmt.Fprintln(w, "Recommendation: Investigate logs and consider scaling or code fixes")
	} else {
		fmt.Fprintln(w, "\nAll pods stable. No immediate concerns.")
	}
}

// RenderVerification writes the per-step pass/fail lines and the
// aggregate verdict.
func RenderVerification(w io.Writer, report *models.VerificationReport) {
	banner(w)
	fmt.Fprintf(w, "VERIFICATION REPORT - %s/%s\n", report.Namespace, report.Target)
	banner(w)
	fmt.Fprintf(w, "Started: %s, finished: %s\n\n",
		report.StartedAt.Format("15:04:05"), report.FinishedAt.Format("15:04:05"))

	for _, step := range report.Steps {
		status := "PASS"
		if !step.Resolved() {
			status = "PENDING"
		} else if !step.Satisfied() {
			status = "FAIL"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", status, step.Name, step.Detail)
	}

	fmt.Fprintln(w)
	if report.Verdict() {
		fmt.Fprintf(w, "Verification complete: all %d checks passed.\n", len(report.Steps))
	} else {
		fmt.Fprintf(w, "Verification needs fixing: %d of %d checks failed.\n",
			report.Failed(), len(report.Steps))
	}
}

// RenderChaos writes what a chaos run actually did, action by action.
func RenderChaos(w io.Writer, result *chaos.Result) {
	section(w, "Chaos Run")
	fmt.Fprintf(w, "Action: %s\n", result.Action.Describe())

	for _, record := range result.Issued {
		line := fmt.Sprintf("[%s] %s", record.Status, record.Action)
		if record.Target != "" {
			line += fmt.Sprintf(" (target: %s)", record.Target)
		}
		if record.Detail != "" {
			line += fmt.Sprintf(": %s", record.Detail)
		}
		fmt.Fprintf(w, "%s at %s\n", line, record.IssuedAt.Format("15:04:05"))
	}

	if result.Aborted {
		fmt.Fprintln(w, "Run aborted by operator; recovery was still attempted")
	}
	if result.EffectConfirmed {
		fmt.Fprintln(w, "Fault effect: confirmed")
	}
	if result.RecoveryObserved {
		downtime := result.RecoveredAt.Sub(result.InjectedAt).Round(100 * time.Millisecond)
		fmt.Fprintf(w, "Recovery observed after %s\n", downtime)
	} else {
		fmt.Fprintln(w, "Recovery not observed within the watch window")
	}
}
