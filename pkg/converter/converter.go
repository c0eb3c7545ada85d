package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/opscart/k8s-chaos-verifier/pkg/chaos"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// ReportToRun derives the persisted run summary from a verification
// report. The report itself is never stored.
func ReportToRun(report *models.VerificationReport, command, clusterID string) *models.RunRecord {
	verdict := models.VerdictNeedsFixing
	if report.Verdict() {
		verdict = models.VerdictComplete
	}

	return &models.RunRecord{
		ID:          uuid.New().String(),
		ClusterID:   clusterID,
		Namespace:   report.Namespace,
		Workload:    report.Target,
		Command:     command,
		Verdict:     verdict,
		StepsPassed: report.Passed(),
		StepsFailed: report.Failed(),
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
	}
}

// ChaosRunRecord summarizes a standalone chaos run for persistence.
// A chaos run has no checklist; the verdict reflects whether recovery
// was observed.
func ChaosRunRecord(result *chaos.Result, command, namespace, clusterID string, startedAt time.Time) *models.RunRecord {
	verdict := models.VerdictNeedsFixing
	if result.RecoveryObserved && !result.Aborted {
		verdict = models.VerdictComplete
	}

	// Pod deletions target a selector, not a named workload.
	workload := result.Action.Workload
	if workload == "" {
		workload = result.Action.Selector
	}

	return &models.RunRecord{
		ID:         uuid.New().String(),
		ClusterID:  clusterID,
		Namespace:  namespace,
		Workload:   workload,
		Command:    command,
		Verdict:    verdict,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
}

// ResultToAuditEntries converts the acknowledged actions of a chaos run
// into audit rows for the given run ID.
func ResultToAuditEntries(runID string, result *chaos.Result, executedBy string) []*models.AuditEntry {
	entries := make([]*models.AuditEntry, 0, len(result.Issued))
	for _, record := range result.Issued {
		entries = append(entries, &models.AuditEntry{
			RunID:        runID,
			Action:       record.Action,
			Status:       record.Status,
			ErrorMessage: record.Detail,
			ExecutedBy:   executedBy,
			ExecutedAt:   record.IssuedAt,
		})
	}
	return entries
}
