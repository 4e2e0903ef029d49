package cmd

import "fmt"

// ExitCodeError carries a non-zero process exit status out of a command.
// Err is nil for partial success, which has already been reported.
type ExitCodeError struct {
	Code int
	Err  error
}

func (e *ExitCodeError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitCodeError) Unwrap() error { return e.Err }

func exitError(code int, err error) error {
	if code == 0 && err == nil {
		return nil
	}
	return &ExitCodeError{Code: code, Err: err}
}
