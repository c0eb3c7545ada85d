package models

import "fmt"

// Comparator selects the direction of a threshold check.
type Comparator string

const (
	CompareGT Comparator = "GT"
	CompareLT Comparator = "LT"
)

// Threshold is one row of the operational threshold table. The table is
// configuration: it can be declared in code defaults or loaded from a
// YAML file, and evaluation follows declaration order.
type Threshold struct {
	Metric         string     `yaml:"metric"`
	Comparator     Comparator `yaml:"comparator"`
	Limit          float64    `yaml:"limit"`
	Recommendation string     `yaml:"recommendation"`
}

// Recommendation is one triggered threshold with the value that tripped it.
type Recommendation struct {
	Metric     string
	Value      float64
	Limit      float64
	Comparator Comparator
	Message    string
}

func (r Recommendation) String() string {
	op := ">"
	if r.Comparator == CompareLT {
		op = "<"
	}
	return fmt.Sprintf("[WARN] %s = %g (%s %g): %s", r.Metric, r.Value, op, r.Limit, r.Message)
}
