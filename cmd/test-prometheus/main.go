package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/analyzer"
	"github.com/opscart/k8s-chaos-verifier/pkg/config"
	"github.com/opscart/k8s-chaos-verifier/pkg/datasource"
)

func main() {
	cfg := config.NewConfig()

	fmt.Println("[INFO] Connecting to Prometheus:", cfg.PrometheusURL)

	source, err := datasource.NewPrometheusSource(cfg.PrometheusURL, cfg.QueryTimeout)
	if err != nil {
		fmt.Printf("[ERROR] Failed to create Prometheus source: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if !source.IsAvailable(ctx) {
		fmt.Println("[ERROR] Prometheus is not available")
		os.Exit(1)
	}
	fmt.Println("[INFO] Prometheus is available")

	queries := analyzer.NewQueries(analyzer.Target{
		Namespace:    cfg.Namespace,
		Deployment:   cfg.Deployment,
		Service:      cfg.ServiceName,
		MetricPrefix: cfg.MetricPrefix,
	})

	checks := []struct {
		name string
		expr string
	}{
		{"pod_count", queries.PodCount()},
		{"request_rate", queries.RequestRate()},
		{"error_rate", queries.ErrorRate()},
		{"response_time_avg", queries.ResponseTimeAvg()},
		{"response_trend", queries.ResponseTrend()},
		{"memory_forecast", queries.MemoryForecast(cfg.ForecastWindow, cfg.ForecastHorizon)},
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("Testing monitoring queries for %s/%s\n", cfg.Namespace, cfg.Deployment)
	fmt.Println(strings.Repeat("=", 80) + "\n")

	for _, check := range checks {
		fmt.Printf("Query: %s\n", check.name)
		fmt.Println(strings.Repeat("-", 40))
		fmt.Printf("  Expr: %s\n", check.expr)

		start := time.Now()
		sample, err := source.Query(ctx, check.expr)
		if err != nil {
			fmt.Printf("  ERROR: %v\n\n", err)
			continue
		}

		fmt.Printf("  Value: %s\n", sample.FormatCompact())
		fmt.Printf("  Took:  %s\n\n", time.Since(start).Round(time.Millisecond))
	}

	fmt.Println("Query: restarts (per pod)")
	fmt.Println(strings.Repeat("-", 40))
	series, err := source.QuerySeries(ctx, queries.Restarts())
	if err != nil {
		fmt.Printf("  ERROR: %v\n", err)
	} else if len(series) == 0 {
		fmt.Println("  No series returned")
	} else {
		for _, s := range series {
			fmt.Printf("  %s: %s\n", s.Pod, s.Sample.FormatCompact())
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("[INFO] Test complete!")
}
