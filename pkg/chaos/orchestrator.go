package chaos

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// State names the phase of a chaos cycle. Transitions run strictly
// Idle -> Injecting -> Settling -> Recovering -> Idle.
type State string

const (
	StateIdle       State = "IDLE"
	StateInjecting  State = "INJECTING"
	StateSettling   State = "SETTLING"
	StateRecovering State = "RECOVERING"
)

// ErrInjectionFailed means the fault was never acknowledged by the
// cluster, so no settle or recovery phase ran.
var ErrInjectionFailed = errors.New("chaos injection failed")

// Options bounds a single chaos cycle.
type Options struct {
	// Settle is the wait between injection and recovery, giving the
	// monitoring stack time to notice the fault.
	Settle time.Duration

	// RecoverReplicas is the replica count the workload must return to.
	RecoverReplicas int32

	// PollEffect polls for the injected effect during the settle wait
	// and ends it early once visible, still bounded by Settle.
	PollEffect   bool
	PollInterval time.Duration

	// ObserveTimeout caps how long to wait for recovery to be observed.
	ObserveTimeout time.Duration

	// RandomTarget picks the pod to delete at random instead of taking
	// the first match.
	RandomTarget bool
}

func (o *Options) applyDefaults() {
	if o.Settle <= 0 {
		o.Settle = 60 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.ObserveTimeout <= 0 {
		o.ObserveTimeout = 2 * time.Minute
	}
	if o.RecoverReplicas <= 0 {
		o.RecoverReplicas = 2
	}
}

// Result records what a chaos cycle actually did.
type Result struct {
	Action           models.ChaosAction
	Issued           []models.ActionRecord
	InjectedAt       time.Time
	RecoveredAt      time.Time
	EffectConfirmed  bool
	RecoveryObserved bool
	Aborted          bool
}

// Orchestrator drives failure injection and recovery against the
// cluster. A single orchestrator runs one cycle at a time.
type Orchestrator struct {
	clientset kubernetes.Interface
	state     State
	verbose   bool
	rand      *rand.Rand
}

func New(clientset kubernetes.Interface, verbose bool) *Orchestrator {
	return &Orchestrator{
		clientset: clientset,
		state:     StateIdle,
		verbose:   verbose,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// State reports the current phase of the chaos cycle.
func (o *Orchestrator) State() State {
	return o.state
}

// RunCycle injects a fault, lets it settle, then restores the workload.
// An abort during the settle or recovery phase still issues the
// recovery action before returning, so the target is never left in the
// injected state.
func (o *Orchestrator) RunCycle(ctx context.Context, action models.ChaosAction, opts Options) (*Result, error) {
	opts.applyDefaults()
	result := &Result{Action: action}

	o.transition(StateInjecting)
	fmt.Printf("[INFO] Injecting fault: %s\n", action.Describe())

	record, err := o.inject(ctx, action, opts)
	result.Issued = append(result.Issued, record)
	if err != nil {
		o.transition(StateIdle)
		return result, fmt.Errorf("%w: %v", ErrInjectionFailed, err)
	}
	result.InjectedAt = record.IssuedAt
	fmt.Printf("[INFO] Fault acknowledged (%s)\n", record.Target)

	o.transition(StateSettling)
	settleErr := o.settle(ctx, action, record.Target, opts, result)
	if settleErr != nil {
		result.Aborted = true
		fmt.Printf("[WARN] Abort requested, issuing recovery before exit\n")
	}

	o.transition(StateRecovering)
	recovery, needed := recoveryAction(action, opts)

	var recoveryErr error
	if needed {
		recoverCtx := ctx
		usedFresh := false
		if ctx.Err() != nil {
			// The operator's context is gone but the workload still has
			// to come back.
			var cancel context.CancelFunc
			recoverCtx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			usedFresh = true
		}

		fmt.Printf("[INFO] Issuing recovery: %s\n", recovery.Describe())
		recoveryRecord, err := o.inject(recoverCtx, recovery, opts)
		result.Issued = append(result.Issued, recoveryRecord)
		if err != nil && !usedFresh && ctx.Err() != nil {
			// The abort raced the recovery call itself. Retry once on a
			// context the operator cannot cancel; the workload must not
			// stay down.
			result.Aborted = true
			fmt.Printf("[WARN] Abort interrupted recovery, retrying\n")
			retryCtx, retryCancel := context.WithTimeout(context.Background(), 30*time.Second)
			recoveryRecord, err = o.inject(retryCtx, recovery, opts)
			retryCancel()
			result.Issued = append(result.Issued, recoveryRecord)
		}
		recoveryErr = err
		if err == nil {
			result.RecoveredAt = recoveryRecord.IssuedAt
		}
	}

	if !result.Aborted && recoveryErr == nil {
		result.RecoveryObserved = o.observeRecovery(ctx, action, opts)
		if result.RecoveryObserved && result.RecoveredAt.IsZero() {
			result.RecoveredAt = time.Now()
		}
	}

	o.transition(StateIdle)

	if result.Aborted {
		abortErr := settleErr
		if abortErr == nil {
			abortErr = ctx.Err()
		}
		if recoveryErr != nil {
			return result, fmt.Errorf("aborted and recovery failed: %v (abort: %w)", recoveryErr, abortErr)
		}
		return result, fmt.Errorf("chaos cycle aborted: %w", abortErr)
	}
	if recoveryErr != nil {
		return result, fmt.Errorf("recovery action failed: %w", recoveryErr)
	}
	return result, nil
}

// InjectAndObserve fires a single fault and watches the cluster heal
// itself. No recovery action is issued; deleted pods are recreated by
// their controller.
func (o *Orchestrator) InjectAndObserve(ctx context.Context, action models.ChaosAction, opts Options) (*Result, error) {
	opts.applyDefaults()
	result := &Result{Action: action}

	o.transition(StateInjecting)
	fmt.Printf("[INFO] Injecting fault: %s\n", action.Describe())

	record, err := o.inject(ctx, action, opts)
	result.Issued = append(result.Issued, record)
	if err != nil {
		o.transition(StateIdle)
		return result, fmt.Errorf("%w: %v", ErrInjectionFailed, err)
	}
	result.InjectedAt = record.IssuedAt
	fmt.Printf("[INFO] Fault acknowledged (%s)\n", record.Target)

	o.transition(StateSettling)
	if err := o.settle(ctx, action, record.Target, opts, result); err != nil {
		result.Aborted = true
		o.transition(StateIdle)
		return result, fmt.Errorf("chaos run aborted: %w", err)
	}

	o.transition(StateRecovering)
	result.RecoveryObserved = o.observeRecovery(ctx, action, opts)
	if result.RecoveryObserved {
		result.RecoveredAt = time.Now()
	}

	o.transition(StateIdle)
	return result, nil
}

// inject dispatches a single action and records the acknowledgement.
func (o *Orchestrator) inject(ctx context.Context, action models.ChaosAction, opts Options) (models.ActionRecord, error) {
	record := models.ActionRecord{
		Action:   action.Describe(),
		IssuedAt: time.Now(),
	}

	var err error
	switch action.Type {
	case models.ActionScaleTo:
		record.Target = action.Workload
		err = o.scaleTo(ctx, action)
	case models.ActionDeleteOne:
		var victim string
		victim, err = o.deleteOne(ctx, action, opts)
		record.Target = victim
	default:
		err = fmt.Errorf("unknown chaos action type %q", action.Type)
	}

	if err != nil {
		record.Status = models.ActionFailed
		record.Detail = err.Error()
		return record, err
	}
	record.Status = models.ActionAcknowledged
	return record, nil
}

func (o *Orchestrator) scaleTo(ctx context.Context, action models.ChaosAction) error {
	deployment, err := o.clientset.AppsV1().Deployments(action.Namespace).Get(ctx, action.Workload, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to get deployment %s: %w", action.Workload, err)
	}

	replicas := action.Replicas
	deployment.Spec.Replicas = &replicas

	if _, err := o.clientset.AppsV1().Deployments(action.Namespace).Update(ctx, deployment, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("failed to scale deployment %s: %w", action.Workload, err)
	}
	return nil
}

func (o *Orchestrator) deleteOne(ctx context.Context, action models.ChaosAction, opts Options) (string, error) {
	pods, err := o.clientset.CoreV1().Pods(action.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: action.Selector,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list pods: %w", err)
	}
	if len(pods.Items) == 0 {
		return "", fmt.Errorf("no pods match selector %q in %s", action.Selector, action.Namespace)
	}

	idx := 0
	if opts.RandomTarget {
		idx = o.rand.Intn(len(pods.Items))
	}
	victim := pods.Items[idx].Name

	if err := o.clientset.CoreV1().Pods(action.Namespace).Delete(ctx, victim, metav1.DeleteOptions{}); err != nil {
		return "", fmt.Errorf("failed to delete pod %s: %w", victim, err)
	}
	return victim, nil
}

// settle waits for the injected fault to take hold. By default this is
// a fixed delay; with PollEffect it checks for the effect each interval
// and ends early once visible, bounded by the same delay.
func (o *Orchestrator) settle(ctx context.Context, action models.ChaosAction, victim string, opts Options, result *Result) error {
	if !opts.PollEffect {
		fmt.Printf("[INFO] Settling for %s so monitoring can catch the fault...\n", opts.Settle)
		select {
		case <-time.After(opts.Settle):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	fmt.Printf("[INFO] Polling for fault effect (up to %s)...\n", opts.Settle)
	deadline := time.After(opts.Settle)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			visible, err := o.effectVisible(ctx, action, victim)
			if err != nil && o.verbose {
				fmt.Printf("[DEBUG] Effect check failed: %v\n", err)
			}
			if err == nil && visible {
				result.EffectConfirmed = true
				fmt.Printf("[INFO] Fault effect confirmed\n")
				return nil
			}
		case <-deadline:
			fmt.Printf("[WARN] Fault effect not confirmed within %s\n", opts.Settle)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (o *Orchestrator) effectVisible(ctx context.Context, action models.ChaosAction, victim string) (bool, error) {
	switch action.Type {
	case models.ActionScaleTo:
		deployment, err := o.clientset.AppsV1().Deployments(action.Namespace).Get(ctx, action.Workload, metav1.GetOptions{})
		if err != nil {
			return false, err
		}
		return deployment.Status.ReadyReplicas <= action.Replicas, nil
	case models.ActionDeleteOne:
		pods, err := o.clientset.CoreV1().Pods(action.Namespace).List(ctx, metav1.ListOptions{
			LabelSelector: action.Selector,
		})
		if err != nil {
			return false, err
		}
		for _, pod := range pods.Items {
			if pod.Name == victim {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, nil
	}
}

// observeRecovery polls until the workload reports its expected ready
// replica count again, bounded by ObserveTimeout.
func (o *Orchestrator) observeRecovery(ctx context.Context, action models.ChaosAction, opts Options) bool {
	deadline := time.After(opts.ObserveTimeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		ready, err := o.workloadReady(ctx, action, opts.RecoverReplicas)
		if err != nil && o.verbose {
			fmt.Printf("[DEBUG] Recovery check failed: %v\n", err)
		}
		if err == nil && ready {
			return true
		}

		select {
		case <-ticker.C:
		case <-deadline:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

func (o *Orchestrator) workloadReady(ctx context.Context, action models.ChaosAction, want int32) (bool, error) {
	if action.Workload != "" {
		deployment, err := o.clientset.AppsV1().Deployments(action.Namespace).Get(ctx, action.Workload, metav1.GetOptions{})
		if err != nil {
			return false, err
		}
		return deployment.Status.ReadyReplicas >= want, nil
	}

	pods, err := o.clientset.CoreV1().Pods(action.Namespace).List(ctx, metav1.ListOptions{
		LabelSelector: action.Selector,
	})
	if err != nil {
		return false, err
	}

	running := int32(0)
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			running++
		}
	}
	return running >= want, nil
}

// recoveryAction returns the action that undoes an injection, if one is
// needed. Deleted pods come back on their own.
func recoveryAction(action models.ChaosAction, opts Options) (models.ChaosAction, bool) {
	switch action.Type {
	case models.ActionScaleTo:
		return models.ScaleTo(action.Workload, action.Namespace, opts.RecoverReplicas), true
	default:
		return models.ChaosAction{}, false
	}
}

func (o *Orchestrator) transition(to State) {
	if o.verbose {
		fmt.Printf("[DEBUG] Chaos state: %s -> %s\n", o.state, to)
	}
	o.state = to
}
