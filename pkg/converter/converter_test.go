package converter

import (
	"testing"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/chaos"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

func TestReportToRun(t *testing.T) {
	report := &models.VerificationReport{
		Target:     "fastapi-app",
		Namespace:  "microservice",
		StartedAt:  time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 3, 14, 10, 5, 0, 0, time.UTC),
	}
	pass := models.NewStep("Crash risk predictor", false)
	pass.Automated = models.SignalPass
	fail := models.NewStep("Alert rule inventory", false)
	fail.Automated = models.SignalFail
	report.Steps = []*models.VerificationStep{pass, fail}

	run := ReportToRun(report, "verify", "local")

	if run.ID == "" {
		t.Error("run ID should be generated")
	}
	if run.Verdict != models.VerdictNeedsFixing {
		t.Errorf("verdict = %s, want %s", run.Verdict, models.VerdictNeedsFixing)
	}
	if run.StepsPassed != 1 || run.StepsFailed != 1 {
		t.Errorf("steps passed/failed = %d/%d, want 1/1", run.StepsPassed, run.StepsFailed)
	}
	if run.Workload != "fastapi-app" || run.Namespace != "microservice" {
		t.Errorf("unexpected target: %s/%s", run.Namespace, run.Workload)
	}

	fail.Automated = models.SignalPass
	run = ReportToRun(report, "verify", "local")
	if run.Verdict != models.VerdictComplete {
		t.Errorf("verdict = %s, want %s", run.Verdict, models.VerdictComplete)
	}
}

func TestChaosRunRecord(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	result := &chaos.Result{
		Action:           models.ScaleTo("fastapi-app", "microservice", 0),
		RecoveryObserved: true,
	}

	run := ChaosRunRecord(result, "scale-cycle", "microservice", "local", started)
	if run.Verdict != models.VerdictComplete {
		t.Errorf("verdict = %s, want %s", run.Verdict, models.VerdictComplete)
	}
	if run.Workload != "fastapi-app" {
		t.Errorf("workload = %s, want fastapi-app", run.Workload)
	}

	result.Aborted = true
	run = ChaosRunRecord(result, "scale-cycle", "microservice", "local", started)
	if run.Verdict != models.VerdictNeedsFixing {
		t.Error("aborted run must not record a complete verdict")
	}
}

func TestChaosRunRecordPodKillUsesSelector(t *testing.T) {
	result := &chaos.Result{
		Action:           models.DeleteOne("app=fastapi-app", "microservice"),
		RecoveryObserved: true,
	}

	run := ChaosRunRecord(result, "pod-kill", "microservice", "local", time.Now())
	if run.Workload != "app=fastapi-app" {
		t.Errorf("workload = %s, want the pod selector", run.Workload)
	}
}

func TestResultToAuditEntries(t *testing.T) {
	issued := time.Now()
	result := &chaos.Result{
		Action: models.ScaleTo("fastapi-app", "microservice", 0),
		Issued: []models.ActionRecord{
			{Action: "scale deployment microservice/fastapi-app to 0", Status: models.ActionAcknowledged, IssuedAt: issued},
			{Action: "scale deployment microservice/fastapi-app to 2", Status: models.ActionAcknowledged, IssuedAt: issued.Add(time.Minute)},
		},
	}

	entries := ResultToAuditEntries("run-1", result, "cli")
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.RunID != "run-1" {
			t.Errorf("run ID = %s, want run-1", entry.RunID)
		}
		if entry.ExecutedBy != "cli" {
			t.Errorf("executed by = %s, want cli", entry.ExecutedBy)
		}
	}
	if entries[1].Action != "scale deployment microservice/fastapi-app to 2" {
		t.Errorf("entries should preserve issue order, got %s", entries[1].Action)
	}
}
