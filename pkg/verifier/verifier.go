package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/opscart/k8s-chaos-verifier/pkg/analyzer"
	"github.com/opscart/k8s-chaos-verifier/pkg/chaos"
	"github.com/opscart/k8s-chaos-verifier/pkg/models"
	"github.com/opscart/k8s-chaos-verifier/pkg/recommender"
	"github.com/opscart/k8s-chaos-verifier/pkg/signals"
)

// Step names, in the order the verification runs them.
const (
	StepChaosRecovery = "Chaos injection and recovery"
	StepPredictor     = "Crash risk predictor"
	StepAnalysis      = "Performance analysis"
	StepInventory     = "Alert rule inventory"
)

// Phase names the stage of a verification run so an abort lands in a
// well-defined place. An abort during Running lets the current step
// finish its cleanup. During AwaitingOperator the prompt is abandoned
// and the human signal stays failed. Finalizing always completes.
type Phase string

const (
	PhaseIdle             Phase = "IDLE"
	PhaseRunning          Phase = "RUNNING"
	PhaseAwaitingOperator Phase = "AWAITING_OPERATOR"
	PhaseFinalizing       Phase = "FINALIZING"
)

// Options configures a full verification run.
type Options struct {
	Deployment         string
	Namespace          string
	Selector           string
	ExpectedReplicas   int
	ExpectedAlertRules int
	PredictorCommand   string
	PredictorEnv       []string
	Chaos              chaos.Options
}

// Verifier sequences the end-to-end checks: break the workload, confirm
// the monitoring stack noticed, confirm the cluster healed it, and
// check the analysis pipeline over the same backend.
type Verifier struct {
	orchestrator *chaos.Orchestrator
	collector    *signals.Collector
	analyzer     *analyzer.Analyzer
	forecaster   *analyzer.Forecaster
	engine       *recommender.Engine
	opts         Options

	phase       Phase
	chaosResult *chaos.Result
}

func New(orchestrator *chaos.Orchestrator, collector *signals.Collector, perf *analyzer.Analyzer, forecaster *analyzer.Forecaster, engine *recommender.Engine, opts Options) *Verifier {
	return &Verifier{
		orchestrator: orchestrator,
		collector:    collector,
		analyzer:     perf,
		forecaster:   forecaster,
		engine:       engine,
		opts:         opts,
		phase:        PhaseIdle,
	}
}

// Phase reports the current stage of the verification run.
func (v *Verifier) Phase() Phase {
	return v.phase
}

// Run executes all verification steps in order and returns the report.
// A failing step never stops the following steps; only an operator
// abort cuts the run short, leaving later steps off the report.
func (v *Verifier) Run(ctx context.Context) (*models.VerificationReport, error) {
	report := &models.VerificationReport{
		Target:    v.opts.Deployment,
		Namespace: v.opts.Namespace,
		StartedAt: time.Now(),
	}

	steps := []struct {
		name          string
		requiresHuman bool
		run           func(context.Context, *models.VerificationStep)
	}{
		{StepChaosRecovery, true, v.runChaosStep},
		{StepPredictor, false, v.runPredictorStep},
		{StepAnalysis, false, v.runAnalysisStep},
		{StepInventory, false, v.runInventoryStep},
	}

	for _, s := range steps {
		step := models.NewStep(s.name, s.requiresHuman)
		report.Steps = append(report.Steps, step)

		v.phase = PhaseRunning
		fmt.Printf("[INFO] Step: %s\n", s.name)
		s.run(ctx, step)

		if ctx.Err() != nil {
			v.phase = PhaseFinalizing
			report.FinishedAt = time.Now()
			v.phase = PhaseIdle
			return report, fmt.Errorf("verification aborted: %w", ctx.Err())
		}
	}

	v.phase = PhaseFinalizing
	report.FinishedAt = time.Now()
	v.phase = PhaseIdle
	return report, nil
}

// runChaosStep drives the full scale-down cycle, checks the workload
// healed, and asks the operator whether the outage notification came
// through the external channel.
func (v *Verifier) runChaosStep(ctx context.Context, step *models.VerificationStep) {
	action, err := chaos.NewAction(chaos.KindScaleToZero, v.opts.Deployment, v.opts.Namespace, v.opts.Selector)
	if err != nil {
		step.Automated = models.SignalFail
		step.Human = models.SignalFail
		step.Detail = err.Error()
		return
	}

	result, err := v.orchestrator.RunCycle(ctx, action, v.opts.Chaos)
	v.chaosResult = result
	if err != nil {
		step.Automated = models.SignalFail
		step.Human = models.SignalFail
		step.Detail = fmt.Sprintf("chaos cycle failed: %v (notification check skipped)", err)
		return
	}

	healthy, healthDetail := v.collector.PodHealth(ctx, v.opts.Namespace, v.opts.Selector, v.opts.ExpectedReplicas)
	if result.RecoveryObserved && healthy {
		step.Automated = models.SignalPass
	} else {
		step.Automated = models.SignalFail
	}
	step.Detail = healthDetail

	v.phase = PhaseAwaitingOperator
	confirmed, humanDetail := v.collector.ConfirmNotification("Did the alert notification arrive on the external channel?")
	v.phase = PhaseRunning
	step.Human = toSignal(confirmed)
	step.Detail += "; " + humanDetail
}

// ChaosResult returns what the chaos step of the last run actually did,
// or nil when the run never reached it. The audit trail is built from
// this.
func (v *Verifier) ChaosResult() *chaos.Result {
	return v.chaosResult
}

func (v *Verifier) runPredictorStep(ctx context.Context, step *models.VerificationStep) {
	ok, detail := v.collector.RunPredictor(ctx, v.opts.PredictorCommand, v.opts.PredictorEnv)
	step.Automated = toSignal(ok)
	step.Detail = detail
}

// runAnalysisStep composes the metrics pipeline end to end. The step
// passes when the pass completes and the workload shows no critical
// findings.
func (v *Verifier) runAnalysisStep(ctx context.Context, step *models.VerificationStep) {
	analysis, err := v.analyzer.Analyze(ctx)
	if err != nil {
		step.Automated = models.SignalFail
		step.Detail = fmt.Sprintf("analysis failed: %v", err)
		return
	}

	forecast, err := v.forecaster.MemoryForecast(ctx)
	if err != nil {
		step.Automated = models.SignalFail
		step.Detail = fmt.Sprintf("forecast failed: %v", err)
		return
	}

	podForecasts, err := v.forecaster.PodForecasts(ctx)
	if err != nil {
		step.Automated = models.SignalFail
		step.Detail = fmt.Sprintf("forecast failed: %v", err)
		return
	}
	criticalForecasts := 0
	for _, pf := range podForecasts {
		if pf.Severity == models.ForecastCritical {
			criticalForecasts++
		}
	}

	recommendations := v.engine.Evaluate(analysis.Current)

	if len(analysis.HighRiskPods) == 0 && criticalForecasts == 0 {
		step.Automated = models.SignalPass
	} else {
		step.Automated = models.SignalFail
	}
	step.Detail = fmt.Sprintf("%d recommendations, %d high-risk pods, predicted memory (%s): %s",
		len(recommendations), len(analysis.HighRiskPods), forecast.HorizonLabel(), forecast.DisplayValue())
}

func (v *Verifier) runInventoryStep(ctx context.Context, step *models.VerificationStep) {
	ok, detail := v.collector.AlertRuleInventory(ctx, v.opts.ExpectedAlertRules)
	step.Automated = toSignal(ok)
	step.Detail = detail
}

func toSignal(ok bool) models.Signal {
	if ok {
		return models.SignalPass
	}
	return models.SignalFail
}
