package models

import "time"

// Run verdict values as persisted.
const (
	VerdictComplete    = "complete"
	VerdictNeedsFixing = "needs-fixing"
)

// RunRecord is the persisted summary of one verification or chaos run.
// The in-memory VerificationReport itself is never stored; this is a
// derived row for history and trend queries.
type RunRecord struct {
	ID          string
	ClusterID   string
	Namespace   string
	Workload    string
	Command     string
	Verdict     string
	StepsPassed int
	StepsFailed int
	StartedAt   time.Time
	FinishedAt  time.Time
	CreatedAt   time.Time
}

// AuditEntry is one chaos action recorded against a run.
type AuditEntry struct {
	ID           string
	RunID        string
	Action       string
	Status       string
	ErrorMessage string
	ExecutedBy   string
	ExecutedAt   time.Time
}
