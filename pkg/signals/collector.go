package signals

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// RulesAPI is the slice of the Prometheus API needed to inventory
// alert rules.
type RulesAPI interface {
	Rules(ctx context.Context) (v1.RulesResult, error)
}

// Collector gathers pass/fail signals from collaborators outside the
// metrics pipeline: the cluster API, the alerting backend, the human
// operator, and the external predictor. Each signal is collected
// independently; one failing never short-circuits the others.
type Collector struct {
	clientset kubernetes.Interface
	rules     RulesAPI
	in        io.Reader
	out       io.Writer
	verbose   bool
}

func NewCollector(clientset kubernetes.Interface, rules RulesAPI, in io.Reader, out io.Writer, verbose bool) *Collector {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Collector{
		clientset: clientset,
		rules:     rules,
		in:        in,
		out:       out,
		verbose:   verbose,
	}
}

// PodHealth checks that the expected number of target pods is running.
func (c *Collector) PodHealth(ctx context.Context, namespace, selector string, expected int) (bool, string) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return false, fmt.Sprintf("could not list pods: %v", err)
	}

	running := 0
	for _, pod := range pods.Items {
		if pod.Status.Phase == corev1.PodRunning {
			running++
		}
	}

	detail := fmt.Sprintf("%d/%d pods running", running, expected)
	return running >= expected, detail
}

// AlertRuleInventory checks that the alerting backend has loaded the
// expected number of alert rules. Recording rules do not count.
func (c *Collector) AlertRuleInventory(ctx context.Context, expected int) (bool, string) {
	if c.rules == nil {
		return false, "no alerting backend configured"
	}

	result, err := c.rules.Rules(ctx)
	if err != nil {
		return false, fmt.Sprintf("could not list alert rules: %v", err)
	}

	loaded := 0
	for _, group := range result.Groups {
		for _, rule := range group.Rules {
			if alerting, ok := rule.(v1.AlertingRule); ok {
				loaded++
				if c.verbose {
					fmt.Printf("[DEBUG] Alert rule loaded: %s\n", alerting.Name)
				}
			}
		}
	}

	detail := fmt.Sprintf("%d of %d expected alert rules loaded", loaded, expected)
	return loaded >= expected, detail
}

// ConfirmNotification asks the operator whether the external
// notification arrived. Anything but an explicit yes counts as a
// declined confirmation, not an error.
func (c *Collector) ConfirmNotification(prompt string) (bool, string) {
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)

	scanner := bufio.NewScanner(c.in)
	if !scanner.Scan() {
		return false, "no response (input closed)"
	}

	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	switch answer {
	case "y", "yes":
		return true, "operator confirmed notification received"
	default:
		return false, "operator reported no notification"
	}
}

// RunPredictor invokes the external predictor and maps its exit status
// to a signal. The command inherits the environment plus any extra
// KEY=value pairs, so the predictor can reach the same backend.
func (c *Collector) RunPredictor(ctx context.Context, command string, extraEnv []string) (bool, string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false, "no predictor command configured"
	}

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Env = append(os.Environ(), extraEnv...)

	output, err := cmd.CombinedOutput()
	if c.verbose && len(output) > 0 {
		fmt.Printf("[DEBUG] Predictor output:\n%s\n", string(output))
	}

	if err != nil {
		return false, fmt.Sprintf("predictor failed: %v%s", err, lastLine(output))
	}
	return true, "predictor exited 0"
}

// lastLine extracts the final non-empty output line for the signal
// detail, keeping the full output out of the one-line summary.
func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return " (" + line + ")"
		}
	}
	return ""
}
