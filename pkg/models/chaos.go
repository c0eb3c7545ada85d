package models

import (
	"fmt"
	"time"
)

// ChaosActionType is the kind of failure to inject.
type ChaosActionType string

const (
	// ActionScaleTo sets the target deployment's replica count. The
	// paired restoration (scale back up) is issued explicitly.
	ActionScaleTo ChaosActionType = "SCALE_TO"

	// ActionDeleteOne deletes a single pod. Restoration is implicit:
	// the controller recreates the pod and recovery is only observed.
	ActionDeleteOne ChaosActionType = "DELETE_ONE"
)

// ChaosAction is one failure-injection primitive aimed at a workload.
// Actions are built immediately before execution and discarded after
// the orchestration API acknowledges them.
type ChaosAction struct {
	Type      ChaosActionType
	Workload  string
	Namespace string
	Selector  string
	Replicas  int32
}

// ScaleTo builds a scale action for a deployment.
func ScaleTo(workload, namespace string, replicas int32) ChaosAction {
	return ChaosAction{
		Type:      ActionScaleTo,
		Workload:  workload,
		Namespace: namespace,
		Replicas:  replicas,
	}
}

// DeleteOne builds a single-pod deletion action for a label selector.
func DeleteOne(selector, namespace string) ChaosAction {
	return ChaosAction{
		Type:      ActionDeleteOne,
		Selector:  selector,
		Namespace: namespace,
	}
}

// Describe renders the action for logs and audit entries.
func (a ChaosAction) Describe() string {
	switch a.Type {
	case ActionScaleTo:
		return fmt.Sprintf("scale deployment %s/%s to %d", a.Namespace, a.Workload, a.Replicas)
	case ActionDeleteOne:
		return fmt.Sprintf("delete one pod matching %q in %s", a.Selector, a.Namespace)
	default:
		return string(a.Type)
	}
}

// ActionRecord is one acknowledged (or rejected) orchestration call.
type ActionRecord struct {
	Action   string
	Target   string
	Status   string
	Detail   string
	IssuedAt time.Time
}

const (
	ActionAcknowledged = "ACKNOWLEDGED"
	ActionFailed       = "FAILED"
)
