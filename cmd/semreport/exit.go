package main

import (
	"errors"
	"fmt"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitQAFailed     = 1 // A document failed QA and --fail-on-qa was set
	ExitCommandError = 2 // Bad input, config, or a service failure
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// qaFailed reports documents that were generated but did not pass QA.
func qaFailed(n int) *ExitError {
	if n == 1 {
		return &ExitError{Code: ExitQAFailed, Message: "1 document failed QA"}
	}
	return &ExitError{Code: ExitQAFailed, Message: fmt.Sprintf("%d documents failed QA", n)}
}

// exitCode extracts the exit code from an error. Errors without one are
// command errors.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}
