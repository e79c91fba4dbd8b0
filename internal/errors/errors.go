// Package errors provides typed error definitions for devpilot.
// Every component reports failures with a PilotError so that callers can
// classify them by code while event payloads carry only the plain message.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique identifier for different error types
type ErrorCode string

const (
	// Configuration errors
	ErrConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigParse      ErrorCode = "CONFIG_PARSE"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Dependency errors
	ErrInstallFailed ErrorCode = "INSTALL_FAILED"

	// Build errors
	ErrBuildFailed     ErrorCode = "BUILD_FAILED"
	ErrBuildInProgress ErrorCode = "BUILD_IN_PROGRESS"
	ErrUnknownRuntime  ErrorCode = "UNKNOWN_RUNTIME"

	// Test errors
	ErrTestsFailed     ErrorCode = "TESTS_FAILED"
	ErrE2EFailed       ErrorCode = "E2E_FAILED"
	ErrCoverageTooLow  ErrorCode = "COVERAGE_BELOW_TARGET"
	ErrCoverageUnknown ErrorCode = "COVERAGE_UNAVAILABLE"

	// Deployment errors
	ErrDeployFailed     ErrorCode = "DEPLOY_FAILED"
	ErrDeployInProgress ErrorCode = "DEPLOY_IN_PROGRESS"
	ErrGitRepoNotFound  ErrorCode = "GIT_REPO_NOT_FOUND"
	ErrGitPushFailed    ErrorCode = "GIT_PUSH_FAILED"

	// Auto-fix errors
	ErrFixFailed       ErrorCode = "FIX_FAILED"
	ErrUnknownConfig   ErrorCode = "UNKNOWN_CONFIG_TEMPLATE"
	ErrManifestInvalid ErrorCode = "MANIFEST_INVALID"

	// Service errors
	ErrServiceNotFound        ErrorCode = "SERVICE_NOT_FOUND"
	ErrServiceStartFailed     ErrorCode = "SERVICE_START_FAILED"
	ErrServiceStopFailed      ErrorCode = "SERVICE_STOP_FAILED"
	ErrServiceRestartFailed   ErrorCode = "SERVICE_RESTART_FAILED"
	ErrServiceHealthCheckFail ErrorCode = "SERVICE_HEALTH_CHECK_FAIL"

	// Command errors
	ErrUnknownCommand  ErrorCode = "UNKNOWN_COMMAND"
	ErrCommandFailed   ErrorCode = "COMMAND_FAILED"
	ErrFullCycleFailed ErrorCode = "FULL_CYCLE_FAILED"
	ErrInvalidInput    ErrorCode = "INVALID_INPUT"

	// Control API client errors
	ErrServerUnreachable ErrorCode = "SERVER_UNREACHABLE"

	// Internal errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrTimeout  ErrorCode = "TIMEOUT"
)

// PilotError represents a structured error with additional context
type PilotError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *PilotError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *PilotError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *PilotError) WithContext(key string, value interface{}) *PilotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetHTTPStatus returns the appropriate HTTP status code for this error
func (e *PilotError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}

	switch e.Code {
	case ErrConfigNotFound, ErrServiceNotFound, ErrGitRepoNotFound:
		return http.StatusNotFound
	case ErrInvalidInput, ErrUnknownCommand, ErrUnknownConfig, ErrConfigValidation:
		return http.StatusBadRequest
	case ErrBuildInProgress, ErrDeployInProgress:
		return http.StatusConflict
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrServerUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new PilotError
func New(code ErrorCode, message string) *PilotError {
	return &PilotError{
		Code:    code,
		Message: message,
	}
}

// NewWithDetails creates a new PilotError with details
func NewWithDetails(code ErrorCode, message, details string) *PilotError {
	return &PilotError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Wrap creates a new PilotError that wraps an existing error
func Wrap(code ErrorCode, message string, cause error) *PilotError {
	return &PilotError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetails creates a new PilotError with details that wraps an existing error
func WrapWithDetails(code ErrorCode, message, details string, cause error) *PilotError {
	return &PilotError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// GetCode extracts the error code from the first PilotError in the chain
func GetCode(err error) ErrorCode {
	var pe *PilotError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// HasCode checks if an error has a specific error code
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
