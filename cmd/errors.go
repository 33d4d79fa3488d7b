package cmd

import (
	"errors"
	"fmt"

	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// Process exit codes.
const (
	exitFailure      = 1
	exitUsage        = 2
	exitBrowserStart = 3
)

// AuditFailedError indicates an audit that produced no report.
type AuditFailedError struct {
	Target string
	Err    error
}

func (e *AuditFailedError) Error() string {
	return fmt.Sprintf("audit of %s failed: %v", e.Target, e.Err)
}

func (e *AuditFailedError) Unwrap() error {
	return e.Err
}

// InvalidFlagError signals a flag or config value outside its accepted range.
type InvalidFlagError struct {
	Flag   string
	Value  string
	Reason string
}

func (e *InvalidFlagError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid value %q for --%s", e.Value, e.Flag)
	}
	return fmt.Sprintf("invalid value %q for --%s: %s", e.Value, e.Flag, e.Reason)
}

func exitCode(err error) int {
	var flagErr *InvalidFlagError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &flagErr),
		errors.Is(err, sharedErrors.ErrEmptyTarget),
		errors.Is(err, sharedErrors.ErrInvalidTarget),
		errors.Is(err, sharedErrors.ErrUnknownFormula):
		return exitUsage
	case errors.Is(err, sharedErrors.ErrLaunch):
		return exitBrowserStart
	default:
		return exitFailure
	}
}
