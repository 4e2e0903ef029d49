package reconcile

import "strings"

// State is a step of the per-context state machine.
type State string

const (
	StatePending   State = "Pending"
	StateResolved  State = "Resolved"
	StateFetched   State = "Fetched"
	StateExtracted State = "Extracted"
	StateMerged    State = "Merged"
	StateSkipped   State = "Skipped"
	StateFailed    State = "Failed"
)

// Kind classifies how a context ended.
type Kind int

const (
	KindMerged Kind = iota
	// KindResolutionSkipped: the context names a cluster or user that does
	// not exist.
	KindResolutionSkipped
	// KindEndpointSkipped: the cluster's server URL has no usable host.
	KindEndpointSkipped
	// KindFailed: fetching or extracting the remote credentials failed.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindMerged:
		return "merged"
	case KindResolutionSkipped:
		return "skipped (unresolved reference)"
	case KindEndpointSkipped:
		return "skipped (invalid server URL)"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Skipped reports whether k is one of the skip kinds.
func (k Kind) Skipped() bool {
	return k == KindResolutionSkipped || k == KindEndpointSkipped
}

// Outcome is the record of one context's reconciliation.
type Outcome struct {
	Context string
	Cluster string
	User    string
	Host    string

	Kind   Kind
	States []State
	Err    error

	// Changed lists the credential fields whose value was replaced.
	Changed []string
	// UsernameCached is true when the login was stored in serveruser by
	// this run.
	UsernameCached bool
	// Reused is true when the credentials came from an earlier context of
	// the same run that shares the cluster.
	Reused bool
}

func (o *Outcome) advance(s State) {
	o.States = append(o.States, s)
}

// State returns the terminal state of the context.
func (o Outcome) State() State {
	if len(o.States) == 0 {
		return StatePending
	}
	return o.States[len(o.States)-1]
}

// Updated reports whether any credential field changed.
func (o Outcome) Updated() bool {
	return len(o.Changed) > 0
}

// Path renders the visited states, e.g. "Pending -> Resolved -> Failed".
func (o Outcome) Path() string {
	parts := make([]string, len(o.States))
	for i, s := range o.States {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}
