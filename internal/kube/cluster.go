package kube

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// GetNodeStatus returns the number of Ready and total nodes in a cluster.
var GetNodeStatus = func(ctx context.Context, clientset kubernetes.Interface) (readyNodes int, totalNodes int, err error) {
	nodeList, errList := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if errList != nil {
		return 0, 0, fmt.Errorf("failed to list nodes: %w", errList)
	}

	totalNodes = len(nodeList.Items)
	for _, node := range nodeList.Items {
		for _, condition := range node.Status.Conditions {
			if condition.Type == corev1.NodeReady && condition.Status == corev1.ConditionTrue {
				readyNodes++
				break
			}
		}
	}
	return readyNodes, totalNodes, nil
}

// CheckAPIHealth asks the API server for its version. A successful answer
// means the client credentials were accepted.
func CheckAPIHealth(clientset kubernetes.Interface) (string, error) {
	info, err := clientset.Discovery().ServerVersion()
	if err != nil {
		return "", fmt.Errorf("failed to get server version: %w", err)
	}
	return info.GitVersion, nil
}

// DetermineClusterProvider identifies the infrastructure of a cluster from
// the providerID, then the labels, of its first node.
func DetermineClusterProvider(ctx context.Context, clientset kubernetes.Interface) (string, error) {
	nodes, err := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return "", fmt.Errorf("failed to list nodes: %w", err)
	}
	if len(nodes.Items) == 0 {
		return "unknown", nil
	}
	return determineProviderFromNode(&nodes.Items[0]), nil
}

// determineProviderFromNode inspects a single node's ProviderID and labels
// to determine the infrastructure provider.
func determineProviderFromNode(node *corev1.Node) string {
	if node == nil {
		return "unknown"
	}

	providerID := node.Spec.ProviderID
	switch {
	case strings.HasPrefix(providerID, "aws://"):
		return "aws"
	case strings.HasPrefix(providerID, "azure://"):
		return "azure"
	case strings.HasPrefix(providerID, "gce://"):
		return "gcp"
	case strings.Contains(providerID, "vsphere"):
		return "vsphere"
	case strings.Contains(providerID, "openstack"):
		return "openstack"
	}

	for k := range node.GetLabels() {
		switch {
		case strings.Contains(k, "eks.amazonaws.com") || strings.Contains(k, "amazonaws.com/compute"):
			return "aws"
		case strings.Contains(k, "kubernetes.azure.com") || strings.Contains(k, "cloud-provider-azure"):
			return "azure"
		case strings.Contains(k, "cloud.google.com/gke") || strings.Contains(k, "instancegroup.gke.io"):
			return "gcp"
		}
	}

	// kubeadm control planes without a cloud provider.
	if _, ok := node.GetLabels()["node-role.kubernetes.io/control-plane"]; ok {
		return "bare-metal"
	}
	return "unknown"
}
