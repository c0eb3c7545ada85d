package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

func TestNewConfigDefaults(t *testing.T) {
	os.Unsetenv("PROMETHEUS_URL")
	os.Unsetenv("TARGET_NAMESPACE")
	os.Unsetenv("EXPECTED_REPLICAS")
	os.Unsetenv("SETTLE_DURATION")

	cfg := NewConfig()

	if cfg.PrometheusURL != "http://localhost:9090" {
		t.Errorf("Expected default Prometheus URL, got %s", cfg.PrometheusURL)
	}
	if cfg.Namespace != "microservice" {
		t.Errorf("Expected default namespace 'microservice', got %s", cfg.Namespace)
	}
	if cfg.Deployment != "fastapi-app" {
		t.Errorf("Expected default deployment 'fastapi-app', got %s", cfg.Deployment)
	}
	if cfg.ExpectedReplicas != 2 {
		t.Errorf("Expected default replica minimum 2, got %d", cfg.ExpectedReplicas)
	}
	if cfg.Settle != 60*time.Second {
		t.Errorf("Expected default settle 60s, got %v", cfg.Settle)
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Errorf("Expected default query timeout 5s, got %v", cfg.QueryTimeout)
	}
	if cfg.StorageEnabled {
		t.Error("Expected storage disabled by default")
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	os.Setenv("PROMETHEUS_URL", "http://prometheus:9090")
	os.Setenv("TARGET_NAMESPACE", "staging")
	os.Setenv("EXPECTED_REPLICAS", "3")
	os.Setenv("SETTLE_DURATION", "90s")
	defer os.Unsetenv("PROMETHEUS_URL")
	defer os.Unsetenv("TARGET_NAMESPACE")
	defer os.Unsetenv("EXPECTED_REPLICAS")
	defer os.Unsetenv("SETTLE_DURATION")

	cfg := NewConfig()

	if cfg.PrometheusURL != "http://prometheus:9090" {
		t.Errorf("Expected URL from env, got %s", cfg.PrometheusURL)
	}
	if cfg.Namespace != "staging" {
		t.Errorf("Expected namespace from env, got %s", cfg.Namespace)
	}
	if cfg.ExpectedReplicas != 3 {
		t.Errorf("Expected replicas 3 from env, got %d", cfg.ExpectedReplicas)
	}
	if cfg.Settle != 90*time.Second {
		t.Errorf("Expected settle 90s from env, got %v", cfg.Settle)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"missing prometheus url", func(c *Config) { c.PrometheusURL = "" }, true},
		{"missing namespace", func(c *Config) { c.Namespace = "" }, true},
		{"zero replicas", func(c *Config) { c.ExpectedReplicas = 0 }, true},
		{"negative settle", func(c *Config) { c.Settle = -time.Second }, true},
		{"storage without dsn", func(c *Config) { c.StorageEnabled = true; c.DatabaseURL = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected valid config, got: %v", err)
			}
		})
	}
}

func TestLoadThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	content := `thresholds:
  - metric: response_time_avg
    comparator: GT
    limit: 0.5
    recommendation: Consider adding caching or optimizing queries
  - metric: pod_count
    comparator: LT
    limit: 2
    recommendation: Check deployment health and replica configuration
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write thresholds file: %v", err)
	}

	thresholds, err := LoadThresholds(path)
	if err != nil {
		t.Fatalf("LoadThresholds failed: %v", err)
	}

	if len(thresholds) != 2 {
		t.Fatalf("Expected 2 thresholds, got %d", len(thresholds))
	}
	if thresholds[0].Metric != "response_time_avg" || thresholds[0].Comparator != models.CompareGT {
		t.Errorf("Unexpected first threshold: %+v", thresholds[0])
	}
	if thresholds[0].Limit != 0.5 {
		t.Errorf("Expected limit 0.5, got %v", thresholds[0].Limit)
	}
	if thresholds[1].Comparator != models.CompareLT {
		t.Errorf("Expected LT comparator, got %s", thresholds[1].Comparator)
	}
}

func TestLoadThresholdsRejectsBadComparator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	content := `thresholds:
  - metric: error_rate
    comparator: GE
    limit: 0.01
    recommendation: Check application logs for recurring errors
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write thresholds file: %v", err)
	}

	if _, err := LoadThresholds(path); err == nil {
		t.Error("Expected error for unknown comparator, got nil")
	}
}

func TestLoadThresholdsMissingFile(t *testing.T) {
	if _, err := LoadThresholds("/does/not/exist.yaml"); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}
