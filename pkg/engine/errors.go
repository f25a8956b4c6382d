package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of a scenario construction error.
type ErrorClass string

const (
	// ErrorClassInvalidOption indicates bad or missing option values.
	// Raised before any configuration or scenario mutation happens.
	ErrorClassInvalidOption ErrorClass = "invalid_option"

	// ErrorClassUnsupportedMode indicates an enum variant reached a transition
	// table that has no entry for it. This is a programming error.
	ErrorClassUnsupportedMode ErrorClass = "unsupported_mode"

	// ErrorClassPrecondition indicates a required collaborator state is missing,
	// e.g. DRT bindings without a DRT configuration module.
	ErrorClassPrecondition ErrorClass = "precondition"

	// ErrorClassInternal indicates a broken invariant inside the engine itself.
	ErrorClassInternal ErrorClass = "internal"
)

// ScenarioError represents a classified error with context.
// nolint:revive // ScenarioError is intentionally named to distinguish from standard errors
type ScenarioError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Stage is the resolver, preparer or composer stage that failed, if any.
	Stage string `json:"stage,omitempty"`

	// Option is the option name that caused the error, if applicable.
	Option string `json:"option,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ScenarioError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Option != "" && e.Stage != "" {
		msg = fmt.Sprintf("%s (option=%s, stage=%s)", msg, e.Option, e.Stage)
	} else if e.Option != "" {
		msg = fmt.Sprintf("%s (option=%s)", msg, e.Option)
	} else if e.Stage != "" {
		msg = fmt.Sprintf("%s (stage=%s)", msg, e.Stage)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ScenarioError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *ScenarioError) Is(target error) bool {
	t, ok := target.(*ScenarioError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewInvalidOptionError creates a new invalid option error.
func NewInvalidOptionError(option, message string, err error) *ScenarioError {
	return &ScenarioError{
		Class:   ErrorClassInvalidOption,
		Message: message,
		Option:  option,
		Code:    ErrCodeValidation,
		Err:     err,
	}
}

// NewUnsupportedModeError creates a new unsupported mode error.
func NewUnsupportedModeError(message string, err error) *ScenarioError {
	return &ScenarioError{
		Class:   ErrorClassUnsupportedMode,
		Message: message,
		Code:    ErrCodeUnsupported,
		Err:     err,
	}
}

// NewPreconditionError creates a new precondition error.
func NewPreconditionError(message string, err error) *ScenarioError {
	return &ScenarioError{
		Class:   ErrorClassPrecondition,
		Message: message,
		Code:    ErrCodePrecondition,
		Err:     err,
	}
}

// NewInternalError creates a new internal error.
func NewInternalError(message string, err error) *ScenarioError {
	return &ScenarioError{
		Class:   ErrorClassInternal,
		Message: message,
		Code:    ErrCodeInternal,
		Err:     err,
	}
}

// WithStage adds stage context to an error.
func (e *ScenarioError) WithStage(stage string) *ScenarioError {
	e.Stage = stage
	return e
}

// WithCode adds an error code to an error.
func (e *ScenarioError) WithCode(code string) *ScenarioError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *ScenarioError) WithDetail(key string, value interface{}) *ScenarioError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ClassOf returns the class of a classified error, or an empty class.
func ClassOf(err error) ErrorClass {
	var e *ScenarioError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// CodeOf returns the code of a classified error, or an empty string.
func CodeOf(err error) string {
	var e *ScenarioError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidOption returns true if the error is classified as an invalid option.
func IsInvalidOption(err error) bool {
	return ClassOf(err) == ErrorClassInvalidOption
}

// IsUnsupportedMode returns true if the error is classified as an unsupported mode.
func IsUnsupportedMode(err error) bool {
	return ClassOf(err) == ErrorClassUnsupportedMode
}

// IsPrecondition returns true if the error is classified as a failed precondition.
func IsPrecondition(err error) bool {
	return ClassOf(err) == ErrorClassPrecondition
}

// IsInternal returns true if the error is classified as internal.
func IsInternal(err error) bool {
	return ClassOf(err) == ErrorClassInternal
}

// IsRetryable reports whether the error may be retried. Scenario construction
// is fail-fast, so no class is retryable.
func IsRetryable(err error) bool {
	return false
}

// Common error codes.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeUnsupported    = "UNSUPPORTED_MODE"
	ErrCodePrecondition   = "PRECONDITION_FAILED"
	ErrCodeMissingModule  = "MISSING_MODULE"
	ErrCodeStageOrder     = "STAGE_ORDER"
	ErrCodeCycle          = "DEPENDENCY_CYCLE"
	ErrCodeSchema         = "SCHEMA_VIOLATION"
	ErrCodePolicy         = "POLICY_VIOLATION"
	ErrCodeAlreadyRunning = "CONTROLLER_STARTED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)
