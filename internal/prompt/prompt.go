// Package prompt collects the answers reconciliation needs from a human: the
// remote login name for a cluster and the secrets used to log in or elevate
// privilege on a control-plane node.
package prompt

import (
	"context"
	"errors"
)

var (
	// ErrAborted is returned when the user cancels a prompt (Esc, Ctrl+C or
	// end of input).
	ErrAborted = errors.New("prompt aborted")
	// ErrEmptyInput is returned when a username prompt is answered with a
	// blank line.
	ErrEmptyInput = errors.New("empty input")
)

// Prompter asks the user for the values reconciliation cannot determine on
// its own. Implementations must block until an answer is available or ctx is
// done.
type Prompter interface {
	// Username asks which login to use for the control-plane host of cluster.
	Username(ctx context.Context, cluster, host string) (string, error)
	// ElevationSecret asks for the secret used to run a privileged read as
	// user on host.
	ElevationSecret(ctx context.Context, user, host string) (string, error)
	// LoginPassword asks for the password of user on host when no key based
	// authentication succeeded.
	LoginPassword(ctx context.Context, user, host string) (string, error)
}
