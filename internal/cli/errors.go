package cli

import "fmt"

// Exit codes returned by the mesgrid binary.
const (
	ExitCodeError    = 1
	ExitCodeConflict = 2
	ExitCodeRemote   = 3
)

// ExitError carries a process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
