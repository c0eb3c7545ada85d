package reporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// GenerateRunsCSV writes the run history as CSV, newest first as given.
func GenerateRunsCSV(runs []models.RunRecord, writer io.Writer) error {
	w := csv.NewWriter(writer)
	defer w.Flush()

	header := []string{
		"Run ID",
		"Started",
		"Finished",
		"Namespace",
		"Workload",
		"Command",
		"Verdict",
		"Steps Passed",
		"Steps Failed",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	complete := 0
	for _, run := range runs {
		row := []string{
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.FinishedAt.Format("2006-01-02 15:04:05"),
			run.Namespace,
			run.Workload,
			run.Command,
			run.Verdict,
			fmt.Sprintf("%d", run.StepsPassed),
			fmt.Sprintf("%d", run.StepsFailed),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
		if run.Verdict == models.VerdictComplete {
			complete++
		}
	}

	// Summary rows
	w.Write([]string{}) // Empty row
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Total Runs", fmt.Sprintf("%d", len(runs))})
	w.Write([]string{"Complete", fmt.Sprintf("%d", complete)})
	w.Write([]string{"Needs Fixing", fmt.Sprintf("%d", len(runs)-complete)})

	return nil
}
