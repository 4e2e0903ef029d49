package reconcile

// Process exit codes.
const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitPartial = 2
)

// Summary is the result of one reconciliation pass.
type Summary struct {
	Outcomes []Outcome
	DryRun   bool
	// Saved is true once the kubeconfig has been written back.
	Saved bool
}

func (s *Summary) count(match func(Kind) bool) int {
	n := 0
	for _, o := range s.Outcomes {
		if match(o.Kind) {
			n++
		}
	}
	return n
}

// Merged returns the number of contexts that reached the Merged state.
func (s *Summary) Merged() int {
	return s.count(func(k Kind) bool { return k == KindMerged })
}

// Skipped returns the number of contexts that could not be resolved.
func (s *Summary) Skipped() int {
	return s.count(Kind.Skipped)
}

// Failed returns the number of contexts whose fetch or extraction failed.
func (s *Summary) Failed() int {
	return s.count(func(k Kind) bool { return k == KindFailed })
}

// Updated returns the number of merged contexts whose credentials changed.
func (s *Summary) Updated() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Kind == KindMerged && o.Updated() {
			n++
		}
	}
	return n
}

// ExitCode maps the pass onto the process exit status: ExitOK when every
// context merged, ExitPartial when any was skipped or failed. Fatal errors
// never produce a Summary worth inspecting and map to ExitFatal in the CLI.
func (s *Summary) ExitCode() int {
	if s.Skipped() > 0 || s.Failed() > 0 {
		return ExitPartial
	}
	return ExitOK
}
