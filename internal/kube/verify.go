package kube

import (
	"context"
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/client-go/kubernetes"

	"kubeconfig-updater/pkg/logging"
)

const subsystem = "Verify"

// Verifier probes contexts of a single kubeconfig file.
type Verifier struct {
	kubeconfigPath string
	newClientset   func(kubeconfigPath, contextName string) (kubernetes.Interface, error)
}

// NewVerifier returns a Verifier for the kubeconfig at path.
func NewVerifier(path string) *Verifier {
	return &Verifier{
		kubeconfigPath: path,
		newClientset:   GetClientsetForContext,
	}
}

// Verify probes each context in order. Every context gets a ProbeResult; the
// returned error aggregates the failures and is nil when all contexts passed.
func (v *Verifier) Verify(ctx context.Context, contexts []string) ([]ProbeResult, error) {
	results := make([]ProbeResult, 0, len(contexts))
	var errs []error

	for _, name := range contexts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		res := v.probe(ctx, name)
		if res.Err != nil {
			logging.Warn(subsystem, "Context %s failed verification: %v", name, res.Err)
			errs = append(errs, fmt.Errorf("%s: %w", name, res.Err))
		} else {
			logging.Info(subsystem, "Context %s: %s, %d/%d nodes ready", name, res.Version, res.Nodes.ReadyNodes, res.Nodes.TotalNodes)
		}
		results = append(results, res)
	}

	return results, utilerrors.NewAggregate(errs)
}

func (v *Verifier) probe(ctx context.Context, name string) ProbeResult {
	res := ProbeResult{Context: name}

	clientset, err := v.newClientset(v.kubeconfigPath, name)
	if err != nil {
		res.Err = err
		return res
	}

	res.Version, err = CheckAPIHealth(clientset)
	if err != nil {
		res.Err = err
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	ready, total, err := GetNodeStatus(ctx, clientset)
	res.Nodes = NodeHealth{ReadyNodes: ready, TotalNodes: total, Error: err}
	if err != nil {
		res.Err = err
		return res
	}

	provider, err := DetermineClusterProvider(ctx, clientset)
	if err != nil {
		logging.Debug(subsystem, "Context %s: provider detection failed: %v", name, err)
		provider = "unknown"
	}
	res.Provider = provider
	return res
}
