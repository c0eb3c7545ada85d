package analyzer

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/opscart/k8s-chaos-verifier/pkg/models"
)

// LiveUsage snapshots current CPU and memory consumption per container
// from the metrics server. The result complements the backend-side
// series with what the cluster sees right now.
func LiveUsage(ctx context.Context, metricsClient metricsv.Interface, namespace, selector string) ([]models.PodResourceUsage, error) {
	podMetrics, err := metricsClient.MetricsV1beta1().PodMetricses(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pod metrics: %w", err)
	}

	var usage []models.PodResourceUsage
	for _, pm := range podMetrics.Items {
		for _, container := range pm.Containers {
			cpu := container.Usage[corev1.ResourceCPU]
			memory := container.Usage[corev1.ResourceMemory]
			usage = append(usage, models.PodResourceUsage{
				Pod:           pm.Name,
				Container:     container.Name,
				CPUMillicores: cpu.MilliValue(),
				MemoryBytes:   memory.Value(),
			})
		}
	}
	return usage, nil
}
