package kubeconfig

import (
	"errors"
	"fmt"
)

// ErrConfigNotFound is returned by Load when the kubeconfig does not exist.
var ErrConfigNotFound = errors.New("kubeconfig not found")

// ErrEntryNotFound is returned by the field setters when the named cluster or
// user is not part of the document.
var ErrEntryNotFound = errors.New("entry not found")

// ParseError reports a kubeconfig that could not be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse kubeconfig %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// BackupError reports a failure to write the pre-run backup.
type BackupError struct {
	Path string
	Err  error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("failed to write kubeconfig backup %s: %v", e.Path, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// WriteError reports a failure to persist the updated kubeconfig.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write kubeconfig %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
