package cluster

import (
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

// Clients bundles the Kubernetes API clients the tool talks to.
type Clients struct {
	Clientset     kubernetes.Interface
	MetricsClient metricsv.Interface
}

// NewClients builds the API clients. Credential resolution order: the
// explicit kubeconfig path, the KUBECONFIG environment variable,
// ~/.kube/config, then the in-cluster service account.
func NewClients(kubeconfig string) (*Clients, error) {
	config, err := buildRestConfig(kubeconfig)
	if err != nil {
		return nil, err
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	metricsClient, err := metricsv.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return &Clients{
		Clientset:     clientset,
		MetricsClient: metricsClient,
	}, nil
}

// Describe returns a short connection banner for startup logging.
func (c *Clients) Describe() (string, error) {
	version, err := c.Clientset.Discovery().ServerVersion()
	if err != nil {
		return "", fmt.Errorf("failed to connect to cluster: %w", err)
	}
	return fmt.Sprintf("Connected to cluster (version: %s)", version.GitVersion), nil
}

func buildRestConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig == "" {
		kubeconfig = os.Getenv("KUBECONFIG")
	}
	if kubeconfig == "" {
		if home := homedir.HomeDir(); home != "" {
			candidate := filepath.Join(home, ".kube", "config")
			if _, err := os.Stat(candidate); err == nil {
				kubeconfig = candidate
			}
		}
	}

	if kubeconfig != "" {
		config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from %s: %w", kubeconfig, err)
		}
		return config, nil
	}

	config, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("no kubeconfig found and not running in-cluster: %w", err)
	}
	return config, nil
}
