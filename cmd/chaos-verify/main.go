package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/analyzer"
	"github.com/opscart/k8s-chaos-verifier/pkg/chaos"
	"github.com/opscart/k8s-chaos-verifier/pkg/cluster"
	"github.com/opscart/k8s-chaos-verifier/pkg/config"
	"github.com/opscart/k8s-chaos-verifier/pkg/converter"
	"github.com/opscart/k8s-chaos-verifier/pkg/datasource"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
	"github.com/opscart/k8s-chaos-verifier/pkg/recommender"
	"github.com/opscart/k8s-chaos-verifier/pkg/reporter"
	"github.com/opscart/k8s-chaos-verifier/pkg/signals"
	"github.com/opscart/k8s-chaos-verifier/pkg/storage"
	"github.com/opscart/k8s-chaos-verifier/pkg/verifier"
	"github.com/spf13/cobra"
)

var (
	// Target flags
	namespace  string
	deployment string
	selector   string
	kubeconfig string

	// Chaos flags
	settle       time.Duration
	pollEffect   bool
	randomTarget bool

	// Run flags
	saveResults  bool
	clusterID    string
	verbose      bool
	outputFormat string

	// Global config
	cfg   *config.Config
	store storage.Store

	// History command vars
	historyLimit int
	csvOutput    string
)

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf("[DEBUG] "+format+"\n", args...)
	}
}

func main() {
	// Initialize config
	cfg = config.NewConfig()

	var rootCmd = &cobra.Command{
		Use:   "chaos-verify",
		Short: "Chaos recovery verification for Kubernetes workloads",
		Long: `Inject failures into a target workload, verify the cluster heals it,
and check that the monitoring stack noticed: live metrics, alert rules,
operator notifications and the crash predictor.`,
	}

	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "Target namespace (default: TARGET_NAMESPACE)")
	rootCmd.PersistentFlags().StringVar(&deployment, "deployment", "", "Target deployment (default: TARGET_DEPLOYMENT)")
	rootCmd.PersistentFlags().StringVar(&selector, "selector", "", "Pod label selector (default: TARGET_SELECTOR)")
	rootCmd.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", "", "Path to kubeconfig (default: KUBECONFIG, ~/.kube/config, in-cluster)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&saveResults, "save", false, "Save run history to database")
	rootCmd.PersistentFlags().StringVar(&clusterID, "cluster-id", "default", "Cluster identifier")

	// Chaos-only: delete one pod and watch the controller replace it
	podKillCmd := &cobra.Command{
		Use:   "pod-kill",
		Short: "Delete one pod and watch the controller replace it",
		Run:   runPodKill,
	}
	podKillCmd.Flags().DurationVar(&settle, "settle", 0, "Settle wait after injection (default: SETTLE_DURATION)")
	podKillCmd.Flags().BoolVar(&pollEffect, "poll-effect", false, "Poll for the fault effect instead of waiting the full settle window")
	podKillCmd.Flags().BoolVar(&randomTarget, "random-target", false, "Pick the victim pod at random")

	// Chaos with recovery: scale to zero, settle, scale back
	scaleCycleCmd := &cobra.Command{
		Use:   "scale-cycle",
		Short: "Scale the deployment to zero, wait, then restore it",
		Run:   runScaleCycle,
	}
	scaleCycleCmd.Flags().DurationVar(&settle, "settle", 0, "Settle wait between outage and recovery (default: SETTLE_DURATION)")
	scaleCycleCmd.Flags().BoolVar(&pollEffect, "poll-effect", false, "Poll for the fault effect instead of waiting the full settle window")

	// Performance analysis report
	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the predictive performance analysis and print the report",
		Run:   runAnalyze,
	}
	analyzeCmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json")

	// Full verification checklist
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the full chaos-recovery verification checklist",
		Long: `Runs four checks in order: chaos injection with recovery, the crash
risk predictor, the performance analysis pipeline, and the alert rule
inventory. The run completes only when every check passes, including
the operator's confirmation that the outage notification arrived.`,
		Run: runVerify,
	}
	verifyCmd.Flags().DurationVar(&settle, "settle", 0, "Settle wait between outage and recovery (default: SETTLE_DURATION)")
	verifyCmd.Flags().BoolVar(&pollEffect, "poll-effect", false, "Poll for the fault effect instead of waiting the full settle window")

	// History command
	historyCmd := &cobra.Command{
		Use:   "history <namespace>",
		Short: "View past verification runs",
		Args:  cobra.ExactArgs(1),
		Run:   runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of runs to show")
	historyCmd.Flags().StringVar(&csvOutput, "csv", "", "Also write the runs as CSV to this file")

	// Audit command
	auditCmd := &cobra.Command{
		Use:   "audit <run-id>",
		Short: "View the chaos actions of a run",
		Args:  cobra.ExactArgs(1),
		Run:   runAudit,
	}

	rootCmd.AddCommand(podKillCmd)
	rootCmd.AddCommand(scaleCycleCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(auditCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyOverrides folds CLI flags into the environment-derived config.
func applyOverrides() {
	if namespace != "" {
		cfg.Namespace = namespace
	}
	if deployment != "" {
		cfg.Deployment = deployment
	}
	if selector != "" {
		cfg.Selector = selector
	}
	if settle > 0 {
		cfg.Settle = settle
	}
	cfg.Verbose = verbose

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initStorage() error {
	if !saveResults {
		return nil
	}
	if !cfg.StorageEnabled {
		fmt.Println("[WARN] --save ignored: storage not enabled (set STORAGE_ENABLED=true)")
		return nil
	}

	var err error
	store, err = storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	return nil
}

func initStorageForced() error {
	var err error
	store, err = storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	return nil
}

// signalContext cancels on Ctrl-C so an abort mid-cycle still triggers
// the recovery path instead of leaving the workload down.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func chaosOptions() chaos.Options {
	return chaos.Options{
		Settle:          cfg.Settle,
		RecoverReplicas: int32(cfg.ExpectedReplicas),
		PollEffect:      pollEffect,
		PollInterval:    cfg.PollInterval,
		RandomTarget:    randomTarget,
	}
}

func mustClients() *cluster.Clients {
	clients, err := cluster.NewClients(kubeconfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing Kubernetes clients: %v\n", err)
		os.Exit(1)
	}

	banner, err := clients.Describe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("[INFO] %s\n", banner)

	return clients
}

func mustSource() *datasource.PrometheusSource {
	source, err := datasource.NewPrometheusSource(cfg.PrometheusURL, cfg.QueryTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing metrics source: %v\n", err)
		os.Exit(1)
	}
	return source
}

func analysisTarget() analyzer.Target {
	return analyzer.Target{
		Namespace:    cfg.Namespace,
		Deployment:   cfg.Deployment,
		Service:      cfg.ServiceName,
		MetricPrefix: cfg.MetricPrefix,
	}
}

func loadThresholds() []models.Threshold {
	if cfg.ThresholdsFile != "" {
		thresholds, err := config.LoadThresholds(cfg.ThresholdsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading thresholds from %s: %v\n", cfg.ThresholdsFile, err)
			os.Exit(1)
		}
		logVerbose("Loaded %d thresholds from %s", len(thresholds), cfg.ThresholdsFile)
		return thresholds
	}
	return recommender.DefaultThresholds(cfg.ExpectedReplicas)
}

func executedBy() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "cli"
}

func runPodKill(cmd *cobra.Command, args []string) {
	applyOverrides()

	if err := initStorage(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	clients := mustClients()
	orchestrator := chaos.New(clients.Clientset, verbose)

	action, err := chaos.NewAction(chaos.KindPodKill, cfg.Deployment, cfg.Namespace, cfg.Selector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	startedAt := time.Now()
	result, runErr := orchestrator.InjectAndObserve(ctx, action, chaosOptions())

	reporter.RenderChaos(os.Stdout, result)
	persistChaosRun(result, "pod-kill", startedAt)

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
	if !result.RecoveryObserved {
		os.Exit(1)
	}
}

func runScaleCycle(cmd *cobra.Command, args []string) {
	applyOverrides()

	if err := initStorage(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	clients := mustClients()
	orchestrator := chaos.New(clients.Clientset, verbose)

	action, err := chaos.NewAction(chaos.KindScaleToZero, cfg.Deployment, cfg.Namespace, cfg.Selector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	startedAt := time.Now()
	result, runErr := orchestrator.RunCycle(ctx, action, chaosOptions())

	reporter.RenderChaos(os.Stdout, result)
	persistChaosRun(result, "scale-cycle", startedAt)

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
	if !result.RecoveryObserved {
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) {
	applyOverrides()

	if outputFormat != "text" && outputFormat != "json" {
		fmt.Fprintln(os.Stderr, "Error: output must be text or json")
		os.Exit(1)
	}

	fmt.Println("[INFO] Chaos Verifier - Starting performance analysis")
	source := mustSource()

	ctx := context.Background()
	if !source.IsAvailable(ctx) {
		fmt.Fprintf(os.Stderr, "Error: metrics backend unreachable at %s\n", cfg.PrometheusURL)
		os.Exit(1)
	}
	fmt.Printf("[INFO] Using Prometheus at %s\n", cfg.PrometheusURL)

	target := analysisTarget()
	perf := analyzer.New(source, target, verbose)

	report, err := perf.Analyze(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	forecaster := analyzer.NewForecaster(source, target, analyzer.ForecastOptions{
		Window:     cfg.ForecastWindow,
		Horizon:    cfg.ForecastHorizon,
		WarnMB:     cfg.MemoryWarnMB,
		CriticalMB: cfg.MemoryCriticalMB,
	})

	report.MemoryForecast, err = forecaster.MemoryForecast(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	report.PodForecasts, err = forecaster.PodForecasts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	history, err := perf.Summaries(ctx, cfg.HistoryWindow, cfg.HistoryStep)
	if err != nil {
		fmt.Printf("[WARN] Could not summarize history: %v\n", err)
	} else {
		report.History = history
	}

	// Live usage needs cluster access; the analysis itself does not.
	if clients, err := cluster.NewClients(kubeconfig); err != nil {
		logVerbose("Skipping live usage: %v", err)
	} else if usage, err := analyzer.LiveUsage(ctx, clients.MetricsClient, cfg.Namespace, cfg.Selector); err != nil {
		fmt.Printf("[WARN] Could not read live usage: %v\n", err)
	} else {
		report.LiveUsage = usage
	}

	engine := recommender.New(loadThresholds())
	report.Recommendations = engine.Evaluate(report.Current)

	if outputFormat == "json" {
		outputAnalysisJSON(report)
	} else {
		reporter.RenderAnalysis(os.Stdout, report, cfg.MemoryLimitMB)
	}

	if len(report.HighRiskPods) > 0 {
		os.Exit(1)
	}
}

func outputAnalysisJSON(report *models.AnalysisReport) {
	output := map[string]interface{}{
		"report":         report,
		"high_risk_pods": len(report.HighRiskPods),
		"timestamp":      report.GeneratedAt.Format(time.RFC3339),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func runVerify(cmd *cobra.Command, args []string) {
	applyOverrides()

	fmt.Println("[INFO] Chaos Verifier - Starting verification run")

	if err := initStorage(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	clients := mustClients()
	source := mustSource()

	ctx, cancel := signalContext()
	defer cancel()

	// No fault is injected while the metrics backend is down: the run
	// could not observe its own effects.
	if !source.IsAvailable(ctx) {
		fmt.Fprintf(os.Stderr, "Error: metrics backend unreachable at %s, refusing to inject faults\n", cfg.PrometheusURL)
		os.Exit(1)
	}
	fmt.Printf("[INFO] Using Prometheus at %s\n", cfg.PrometheusURL)
	fmt.Printf("[INFO] Target workload: %s/%s\n", cfg.Namespace, cfg.Deployment)

	target := analysisTarget()
	perf := analyzer.New(source, target, verbose)
	forecaster := analyzer.NewForecaster(source, target, analyzer.ForecastOptions{
		Window:     cfg.ForecastWindow,
		Horizon:    cfg.ForecastHorizon,
		WarnMB:     cfg.MemoryWarnMB,
		CriticalMB: cfg.MemoryCriticalMB,
	})
	engine := recommender.New(loadThresholds())
	orchestrator := chaos.New(clients.Clientset, verbose)
	collector := signals.NewCollector(clients.Clientset, source.RulesAPI(), os.Stdin, os.Stdout, verbose)

	v := verifier.New(orchestrator, collector, perf, forecaster, engine, verifier.Options{
		Deployment:         cfg.Deployment,
		Namespace:          cfg.Namespace,
		Selector:           cfg.Selector,
		ExpectedReplicas:   cfg.ExpectedReplicas,
		ExpectedAlertRules: cfg.ExpectedAlertRules,
		PredictorCommand:   cfg.PredictorCommand,
		PredictorEnv:       []string{"PROMETHEUS_URL=" + cfg.PrometheusURL},
		Chaos:              chaosOptions(),
	})

	report, runErr := v.Run(ctx)

	reporter.RenderVerification(os.Stdout, report)
	persistVerifyRun(report, v.ChaosResult())

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
	if !report.Verdict() {
		os.Exit(1)
	}
}

func persistChaosRun(result *chaos.Result, command string, startedAt time.Time) {
	if store == nil {
		return
	}

	ctx := context.Background()
	run := converter.ChaosRunRecord(result, command, cfg.Namespace, clusterID, startedAt)
	if err := store.SaveRun(ctx, run); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to save run: %v\n", err)
		return
	}
	fmt.Printf("[INFO] Saved run %s\n", run.ID)

	for _, entry := range converter.ResultToAuditEntries(run.ID, result, executedBy()) {
		if err := store.LogAction(ctx, entry); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to save audit entry: %v\n", err)
		}
	}
}

func persistVerifyRun(report *models.VerificationReport, result *chaos.Result) {
	if store == nil {
		return
	}

	ctx := context.Background()
	run := converter.ReportToRun(report, "verify", clusterID)
	if err := store.SaveRun(ctx, run); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Failed to save run: %v\n", err)
		return
	}
	fmt.Printf("[INFO] Saved run %s\n", run.ID)

	if result == nil {
		return
	}
	for _, entry := range converter.ResultToAuditEntries(run.ID, result, executedBy()) {
		if err := store.LogAction(ctx, entry); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to save audit entry: %v\n", err)
		}
	}
}

func runHistory(cmd *cobra.Command, args []string) {
	ns := args[0]

	// Force initialize storage
	if err := initStorageForced(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	runs, err := store.ListRuns(ctx, ns, historyLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(runs) == 0 {
		fmt.Printf("No runs found for namespace: %s\n", ns)
		return
	}

	fmt.Printf("Recent runs for namespace '%s':\n\n", ns)
	for i, run := range runs {
		fmt.Printf("%d. %s %s (ID: %s)\n", i+1, run.Command, run.Workload, run.ID)
		fmt.Printf("   Verdict: %s (%d passed, %d failed)\n", run.Verdict, run.StepsPassed, run.StepsFailed)
		fmt.Printf("   Started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}

	if csvOutput != "" {
		file, err := os.Create(csvOutput)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()

		records := make([]models.RunRecord, 0, len(runs))
		for _, run := range runs {
			records = append(records, *run)
		}
		if err := reporter.GenerateRunsCSV(records, file); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("[INFO] CSV report generated: %s\n", csvOutput)
	}
}

func runAudit(cmd *cobra.Command, args []string) {
	runID := args[0]

	// Force initialize storage for audit command
	if err := initStorageForced(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Run: %s\n", run.ID)
	fmt.Printf("Workload: %s (Namespace: %s)\n", run.Workload, run.Namespace)
	fmt.Printf("Command: %s\n", run.Command)
	fmt.Printf("Verdict: %s (%d passed, %d failed)\n", run.Verdict, run.StepsPassed, run.StepsFailed)
	fmt.Printf("Started: %s\n\n", run.StartedAt.Format("2006-01-02 15:04:05"))

	entries, err := store.GetAuditLog(ctx, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No audit log entries found")
		return
	}

	fmt.Println("Audit Log:")
	for i, entry := range entries {
		fmt.Printf("%d. %s - %s\n", i+1, entry.Action, entry.Status)
		fmt.Printf("   Executed: %s\n", entry.ExecutedAt.Format("2006-01-02 15:04:05"))
		if entry.ExecutedBy != "" {
			fmt.Printf("   By: %s\n", entry.ExecutedBy)
		}
		if entry.ErrorMessage != "" {
			fmt.Printf("   Error: %s\n", entry.ErrorMessage)
		}
		fmt.Println()
	}
}
