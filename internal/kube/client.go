package kube

import (
	"fmt"
	"time"

	"k8s.io/client-go/kubernetes"
	_ "k8s.io/client-go/plugin/pkg/client/auth"
	"k8s.io/client-go/tools/clientcmd"
)

// requestTimeout bounds every API call made while verifying a context.
const requestTimeout = 15 * time.Second

// GetClientsetForContext creates a clientset for contextName of the kubeconfig
// at kubeconfigPath. Other kubeconfig files named by $KUBECONFIG are ignored
// so the check exercises exactly the file that was updated.
var GetClientsetForContext = func(kubeconfigPath, contextName string) (kubernetes.Interface, error) {
	loadingRules := &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath}
	configOverrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	kubeConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, configOverrides)

	restConfig, err := kubeConfig.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get REST config for context %q: %w", contextName, err)
	}
	restConfig.Timeout = requestTimeout

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset for context %q: %w", contextName, err)
	}
	return clientset, nil
}
