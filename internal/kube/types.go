package kube

// NodeHealth represents the health status of nodes in a cluster
type NodeHealth struct {
	ReadyNodes int
	TotalNodes int
	Error      error
}

// ProbeResult is the verification outcome of one kubeconfig context.
type ProbeResult struct {
	Context  string
	Version  string // API server GitVersion, empty when unreachable
	Provider string
	Nodes    NodeHealth
	Err      error
}

// OK reports whether the context authenticated and listed its nodes.
func (r ProbeResult) OK() bool {
	return r.Err == nil
}
