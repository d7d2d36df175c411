// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrSessionExpired   = errors.New("session expired")
	ErrStepBlocked      = errors.New("step is blocked by a stand-down verdict")
	ErrNoVerdict        = errors.New("step has no verdict yet")
	ErrNoOverride       = errors.New("verdict does not permit a manual override")
	ErrStaleResponse    = errors.New("stale gateway response discarded")
	ErrMissingStepData  = errors.New("required step data is missing")
	ErrChecklistFailed  = errors.New("final checklist has unsatisfied required items")
	ErrDraftNotFound    = errors.New("draft not found")
	ErrTradeNotFound    = errors.New("trade not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrTimeout          = errors.New("operation timed out")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrDatabaseError    = errors.New("database error")
	ErrInputValidation  = errors.New("input validation failed")
)

// GatewayError represents a transient failure talking to the coach API:
// a transport error or a non-2xx status. It is always retryable by
// resubmitting the step; it never carries a verdict.
type GatewayError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway error [%s] status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("gateway error [%s]: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("gateway error [%s]: %s", e.Operation, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError creates a new GatewayError.
func NewGatewayError(operation string, statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// ValidationError represents a local payload validation failure. It is
// surfaced before any gateway call is made.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// StepError represents an error scoped to a workflow step.
type StepError struct {
	Step      int
	Operation string
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d %s: %v", e.Step, e.Operation, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// NewStepError creates a new StepError.
func NewStepError(step int, operation string, err error) *StepError {
	return &StepError{
		Step:      step,
		Operation: operation,
		Err:       err,
	}
}

// UploadError represents a screenshot upload failure.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload error [%s]: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// NewUploadError creates a new UploadError.
func NewUploadError(filename string, err error) *UploadError {
	return &UploadError{
		Filename: filename,
		Err:      err,
	}
}

// IsRetryable reports whether the error is a transient gateway or upload
// failure the user can retry without editing step data. Negative verdicts
// are values, not errors, so they never appear here.
func IsRetryable(err error) bool {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return true
	}
	var ue *UploadError
	if errors.As(err, &ue) {
		return true
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimited)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
