package chaos

import (
	"fmt"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// Fault kinds the CLI and verification flow can request by name.
const (
	KindPodKill     = "pod-kill"
	KindScaleToZero = "scale-to-zero"
)

// NewAction builds the chaos action for a named fault kind against the
// given target workload.
func NewAction(kind, deployment, namespace, selector string) (models.ChaosAction, error) {
	switch kind {
	case KindPodKill:
		return models.DeleteOne(selector, namespace), nil
	case KindScaleToZero:
		return models.ScaleTo(deployment, namespace, 0), nil
	default:
		return models.ChaosAction{}, fmt.Errorf("unsupported fault kind: %s (supported: %s, %s)",
			kind, KindPodKill, KindScaleToZero)
	}
}
