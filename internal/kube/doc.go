// Package kube checks that refreshed kubeconfig credentials actually work.
//
// After a reconciliation pass the updater can probe each context with
// client-go: the API server version proves the client certificate is
// accepted, and a node listing shows how much of the cluster is Ready.
//
// # Core Components
//
// Verifier: probes a list of contexts of one kubeconfig file, one at a time,
// and returns a ProbeResult per context together with an aggregated error
// for the contexts that failed.
//
// Cluster helpers: GetNodeStatus, CheckAPIHealth and DetermineClusterProvider
// work on any kubernetes.Interface, so they are exercised in tests with the
// client-go fake clientset.
//
// # Usage Example
//
//	v := kube.NewVerifier("/home/me/.kube/config")
//	results, err := v.Verify(ctx, []string{"prod", "staging"})
//	for _, r := range results {
//	    fmt.Println(r.Context, r.Version, r.ReadyNodes, r.TotalNodes)
//	}
package kube
