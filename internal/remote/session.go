package remote

import (
	"context"
	"errors"

	"kubeconfig-updater/internal/prompt"
	"kubeconfig-updater/pkg/logging"
)

// Session carries the state shared by every fetch of one run: the prompter
// and the elevation secret, which is asked for at most once.
type Session struct {
	prompter prompt.Prompter

	secret    string
	secretErr error
	asked     bool
}

// NewSession returns a Session asking p for anything it needs.
func NewSession(p prompt.Prompter) *Session {
	return &Session{prompter: p}
}

// Prompter returns the prompter the session was created with.
func (s *Session) Prompter() prompt.Prompter {
	return s.prompter
}

// ElevationSecret returns the secret used for privileged reads, prompting on
// first use. A declined prompt is remembered so later hosts fail fast instead
// of asking again; a cancelled context is not.
func (s *Session) ElevationSecret(ctx context.Context, user, host string) (string, error) {
	if s.asked {
		return s.secret, s.secretErr
	}

	secret, err := s.prompter.ElevationSecret(ctx, user, host)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return "", err
	}

	s.asked = true
	s.secret, s.secretErr = secret, err
	if err != nil {
		logging.Warn("Fetcher", "Elevation unavailable for this run: %v", err)
	}
	return secret, err
}

// ElevationRequested reports whether the elevation secret has been asked for.
func (s *Session) ElevationRequested() bool {
	return s.asked
}
