package browser

import (
	"fmt"

	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

// LaunchError signals that the browser process could not be started.
// It matches both ErrLaunch and the underlying cause with errors.Is.
type LaunchError struct {
	ExecPath string
	Err      error
}

func (e *LaunchError) Error() string {
	if e.ExecPath != "" {
		return fmt.Sprintf("launch browser %s: %v", e.ExecPath, e.Err)
	}
	return fmt.Sprintf("launch browser: %v", e.Err)
}

func (e *LaunchError) Unwrap() []error {
	return []error{sharedErrors.ErrLaunch, e.Err}
}

// EvaluationError wraps a failure raised while running a command inside the page.
type EvaluationError struct {
	Command string
	Err     error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
