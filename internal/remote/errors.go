package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidServerURL is returned by ParseHost for URLs that do not name
	// an http(s) endpoint.
	ErrInvalidServerURL = errors.New("invalid server URL")
	// ErrPermissionDenied is returned by a Client when the login user may not
	// read the requested file.
	ErrPermissionDenied = errors.New("permission denied")
)

// ConnectionError reports that no usable remote session could be
// established with Host: unreachable, timed out, rejected host key, failed
// authentication or no login name.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PermissionError reports that Path on Host could not be read even after
// attempting privilege elevation.
type PermissionError struct {
	Host string
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("cannot read %s on %s: %v", e.Path, e.Host, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }
