package cmd

import "fmt"

// Exit codes for the storyspec CLI
const (
	// ExitSuccess indicates all stories passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more stories failed
	ExitTestFailure = 1

	// ExitParseError indicates a story that could not be loaded, parsed or planned
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError ends the process with Code. Err, when set, is printed first.
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

func exitWith(code int, err error) error {
	if code == ExitSuccess && err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}
