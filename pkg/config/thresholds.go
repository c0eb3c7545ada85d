package config

import (
	"fmt"
	"os"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
	"gopkg.in/yaml.v3"
)

type thresholdsFile struct {
	Thresholds []models.Threshold `yaml:"thresholds"`
}

// LoadThresholds reads a threshold table from a YAML file. Declaration
// order in the file is evaluation order. Callers fall back to the
// built-in defaults when no path is configured.
func LoadThresholds(path string) ([]models.Threshold, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read thresholds file: %w", err)
	}

	var parsed thresholdsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse thresholds file: %w", err)
	}

	for i, th := range parsed.Thresholds {
		if th.Metric == "" {
			return nil, fmt.Errorf("threshold %d: metric must be set", i)
		}
		if th.Comparator != models.CompareGT && th.Comparator != models.CompareLT {
			return nil, fmt.Errorf("threshold %d (%s): comparator must be GT or LT, got %q", i, th.Metric, th.Comparator)
		}
		if th.Recommendation == "" {
			return nil, fmt.Errorf("threshold %d (%s): recommendation must be set", i, th.Metric)
		}
	}

	return parsed.Thresholds, nil
}
