package remote

import (
	"context"
	"errors"
	"fmt"

	"kubeconfig-updater/pkg/logging"
)

// DefaultRemotePath is where kubeadm writes the administrator kubeconfig on
// control-plane nodes.
const DefaultRemotePath = "/etc/kubernetes/admin.conf"

const subsystem = "Fetcher"

// Client is an open remote session.
type Client interface {
	// ReadFile returns the content of path as the login user. It returns an
	// error wrapping ErrPermissionDenied when the user may not read it.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// ReadFileElevated reads path with elevated privilege, authenticating
	// the elevation with secret.
	ReadFileElevated(ctx context.Context, path, secret string) ([]byte, error)
	Close() error
}

// Dialer opens remote sessions.
type Dialer interface {
	Dial(ctx context.Context, host, user string) (Client, error)
}

// Result is a successful fetch.
type Result struct {
	Host     string
	Username string
	// Prompted is true when Username was asked for during this fetch and is
	// therefore not cached yet.
	Prompted bool
	Data     []byte
}

// Fetcher reads the administrator kubeconfig from a control-plane node.
type Fetcher struct {
	dialer     Dialer
	session    *Session
	remotePath string
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithRemotePath overrides DefaultRemotePath.
func WithRemotePath(path string) FetcherOption {
	return func(f *Fetcher) {
		if path != "" {
			f.remotePath = path
		}
	}
}

// NewFetcher returns a Fetcher dialing through d and prompting through s.
func NewFetcher(d Dialer, s *Session, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		dialer:     d,
		session:    s,
		remotePath: DefaultRemotePath,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RemotePath returns the file the Fetcher reads.
func (f *Fetcher) RemotePath() string {
	return f.remotePath
}

// Fetch reads the remote credential file of the node behind serverURL. When
// cachedUser is empty the login name is asked for; cluster only labels that
// question. The remote session is closed before Fetch returns.
func (f *Fetcher) Fetch(ctx context.Context, cluster, serverURL, cachedUser string) (*Result, error) {
	host, err := ParseHost(serverURL)
	if err != nil {
		return nil, err
	}

	user, prompted := cachedUser, false
	if user == "" {
		user, err = f.session.Prompter().Username(ctx, cluster, host)
		if err != nil {
			return nil, &ConnectionError{Host: host, Err: fmt.Errorf("no login name: %w", err)}
		}
		prompted = true
	} else {
		logging.Debug(subsystem, "Using cached login %s for %s", user, host)
	}

	client, err := f.dialer.Dial(ctx, host, user)
	if err != nil {
		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			return nil, err
		}
		return nil, &ConnectionError{Host: host, Err: err}
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logging.Debug(subsystem, "Closing session to %s: %v", host, cerr)
		}
	}()

	data, err := client.ReadFile(ctx, f.remotePath)
	switch {
	case errors.Is(err, ErrPermissionDenied):
		logging.Info(subsystem, "%s is not readable by %s on %s, elevating", f.remotePath, user, host)
		data, err = f.readElevated(ctx, client, host, user)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, &ConnectionError{Host: host, Err: fmt.Errorf("reading %s: %w", f.remotePath, err)}
	}

	return &Result{
		Host:     host,
		Username: user,
		Prompted: prompted,
		Data:     data,
	}, nil
}

func (f *Fetcher) readElevated(ctx context.Context, client Client, host, user string) ([]byte, error) {
	secret, err := f.session.ElevationSecret(ctx, user, host)
	if err != nil {
		return nil, &PermissionError{Host: host, Path: f.remotePath, Err: fmt.Errorf("elevation unavailable: %w", err)}
	}
	data, err := client.ReadFileElevated(ctx, f.remotePath, secret)
	if err != nil {
		return nil, &PermissionError{Host: host, Path: f.remotePath, Err: err}
	}
	return data, nil
}
