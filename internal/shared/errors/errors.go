package errors

import "errors"

// Domain errors
var (
	// Target errors
	ErrEmptyTarget   = errors.New("target cannot be empty")
	ErrInvalidTarget = errors.New("invalid target url")

	// Browser errors
	ErrLaunch             = errors.New("browser launch failed")
	ErrSessionClosed      = errors.New("browser session is closed")
	ErrElementNotFound    = errors.New("element not found")
	ErrNetworkIdleTimeout = errors.New("network idle wait timed out")

	// Report errors
	ErrReportSealed     = errors.New("audit report is sealed")
	ErrReportNotSealed  = errors.New("audit report is not sealed")
	ErrIncompleteReport = errors.New("audit report is missing a probe kind")
	ErrUnknownFormula   = errors.New("unknown score formula")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
