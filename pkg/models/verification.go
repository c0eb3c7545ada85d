package models

import "time"

// Signal is the state of one verification signal.
type Signal string

const (
	SignalPending Signal = "PENDING"
	SignalPass    Signal = "PASS"
	SignalFail    Signal = "FAIL"
)

// VerificationStep is one checklist item. Automated results come from
// the system itself; the human signal is an operator attestation for
// things the program cannot observe (did the notification arrive).
type VerificationStep struct {
	Name          string
	Automated     Signal
	Human         Signal
	RequiresHuman bool
	Detail        string
}

// NewStep builds a pending step.
func NewStep(name string, requiresHuman bool) *VerificationStep {
	return &VerificationStep{
		Name:          name,
		Automated:     SignalPending,
		Human:         SignalPending,
		RequiresHuman: requiresHuman,
	}
}

// Resolved reports whether every required signal has left PENDING.
func (s *VerificationStep) Resolved() bool {
	if s.Automated == SignalPending {
		return false
	}
	if s.RequiresHuman && s.Human == SignalPending {
		return false
	}
	return true
}

// Satisfied reports whether every required signal resolved true.
func (s *VerificationStep) Satisfied() bool {
	if s.Automated != SignalPass {
		return false
	}
	if s.RequiresHuman && s.Human != SignalPass {
		return false
	}
	return true
}

// VerificationReport is the ordered checklist of one verification run.
// It is created at run start, mutated in place as steps resolve, and
// handed to the reporter at the end.
type VerificationReport struct {
	Target     string
	Namespace  string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []*VerificationStep
}

// Resolved reports whether every step has resolved.
func (r *VerificationReport) Resolved() bool {
	for _, step := range r.Steps {
		if !step.Resolved() {
			return false
		}
	}
	return true
}

// Verdict is the logical AND of all step satisfactions. An unresolved
// step forces false: there is no partial verdict.
func (r *VerificationReport) Verdict() bool {
	if !r.Resolved() {
		return false
	}
	for _, step := range r.Steps {
		if !step.Satisfied() {
			return false
		}
	}
	return true
}

// Passed counts satisfied steps.
func (r *VerificationReport) Passed() int {
	n := 0
	for _, step := range r.Steps {
		if step.Satisfied() {
			n++
		}
	}
	return n
}

// Failed counts steps that resolved unsatisfied or are still pending.
func (r *VerificationReport) Failed() int {
	return len(r.Steps) - r.Passed()
}
