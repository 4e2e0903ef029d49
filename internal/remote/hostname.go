package remote

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseHost returns the hostname of a kubeconfig server URL, without scheme
// or port. Only http and https URLs are accepted.
func ParseHost(serverURL string) (string, error) {
	if strings.TrimSpace(serverURL) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidServerURL)
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidServerURL, serverURL, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: %q: unsupported scheme %q", ErrInvalidServerURL, serverURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: %q: no host", ErrInvalidServerURL, serverURL)
	}
	return host, nil
}
