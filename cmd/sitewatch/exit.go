package main

import (
	"fmt"

	"github.com/nao1215/sitewatch/internal/model"
)

// Process exit statuses.
const (
	// ExitClean means no source changed.
	ExitClean = 0

	// ExitChanged means at least one source changed.
	ExitChanged = 1

	// ExitFetchFailed means some sources could not be fetched and none changed.
	ExitFetchFailed = 2

	// ExitFatal means the run could not complete.
	ExitFatal = 3
)

// ExitError carries a process exit status out of a command.
// Err is printed to stderr when set; a nil Err exits silently.
type ExitError struct {
	Code int
	Err  error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps a run outcome onto a process exit status.
func exitCode(outcome model.Outcome, failOnFetchError bool) int {
	switch outcome {
	case model.OutcomeChanged:
		return ExitChanged
	case model.OutcomeFetchFailed:
		if failOnFetchError {
			return ExitFetchFailed
		}
		return ExitClean
	default:
		return ExitClean
	}
}

// outcomeError returns the error a command returns for result, or nil
// for a clean exit.
func outcomeError(result *model.RunResult, failOnFetchError bool) error {
	code := exitCode(result.Outcome(), failOnFetchError)
	if code == ExitClean {
		return nil
	}
	return &ExitError{Code: code}
}
