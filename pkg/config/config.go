package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration. Every component receives the
// values it needs at construction; nothing reads process-wide state
// after startup.
type Config struct {
	// Prometheus
	PrometheusURL string
	QueryTimeout  time.Duration

	// Target workload
	Namespace    string
	Deployment   string
	Selector     string
	ServiceName  string
	MetricPrefix string

	// Verification expectations
	ExpectedReplicas   int
	ExpectedAlertRules int

	// Chaos
	Settle       time.Duration
	PollInterval time.Duration

	// Forecasting
	ForecastWindow   time.Duration
	ForecastHorizon  time.Duration
	MemoryLimitMB    float64
	MemoryWarnMB     float64
	MemoryCriticalMB float64

	// Range history summaries
	HistoryWindow time.Duration
	HistoryStep   time.Duration

	// External predictor
	PredictorCommand string

	// Thresholds
	ThresholdsFile string

	// Storage
	StorageEnabled bool
	DatabaseURL    string

	// Output
	Verbose bool
}

// NewConfig creates a new configuration with defaults, overridable via
// environment variables. CLI flags override on top of this.
func NewConfig() *Config {
	return &Config{
		PrometheusURL: getEnv("PROMETHEUS_URL", "http://localhost:9090"),
		QueryTimeout:  getEnvDuration("QUERY_TIMEOUT", 5*time.Second),

		Namespace:    getEnv("TARGET_NAMESPACE", "microservice"),
		Deployment:   getEnv("TARGET_DEPLOYMENT", "fastapi-app"),
		Selector:     getEnv("TARGET_SELECTOR", "app=fastapi-app"),
		ServiceName:  getEnv("TARGET_SERVICE", "fastapi-app-service"),
		MetricPrefix: getEnv("METRIC_PREFIX", "fastapi"),

		ExpectedReplicas:   getEnvInt("EXPECTED_REPLICAS", 2),
		ExpectedAlertRules: getEnvInt("EXPECTED_ALERT_RULES", 5),

		Settle:       getEnvDuration("SETTLE_DURATION", 60*time.Second),
		PollInterval: getEnvDuration("POLL_INTERVAL", 5*time.Second),

		ForecastWindow:   getEnvDuration("FORECAST_WINDOW", time.Hour),
		ForecastHorizon:  getEnvDuration("FORECAST_HORIZON", time.Hour),
		MemoryLimitMB:    getEnvFloat("MEMORY_LIMIT_MB", 256),
		MemoryWarnMB:     getEnvFloat("MEMORY_WARN_MB", 200),
		MemoryCriticalMB: getEnvFloat("MEMORY_CRITICAL_MB", 250),

		HistoryWindow: getEnvDuration("HISTORY_WINDOW", 30*time.Minute),
		HistoryStep:   getEnvDuration("HISTORY_STEP", time.Minute),

		PredictorCommand: getEnv("PREDICTOR_CMD", "python3 prediction/predict.py"),

		ThresholdsFile: getEnv("THRESHOLDS_FILE", ""),

		StorageEnabled: getEnvBool("STORAGE_ENABLED", false),
		DatabaseURL:    getEnv("DATABASE_URL", "host=localhost port=5432 user=chaosuser password=devpassword dbname=chaosverifier sslmode=disable"),

		Verbose: false,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	if c.PrometheusURL == "" {
		return fmt.Errorf("PROMETHEUS_URL must be set")
	}
	if c.Namespace == "" {
		return fmt.Errorf("target namespace must be set")
	}
	if c.Deployment == "" {
		return fmt.Errorf("target deployment must be set")
	}
	if c.ExpectedReplicas < 1 {
		return fmt.Errorf("expected replicas must be at least 1, got %d", c.ExpectedReplicas)
	}
	if c.Settle <= 0 {
		return fmt.Errorf("settle duration must be positive, got %v", c.Settle)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	return nil
}
