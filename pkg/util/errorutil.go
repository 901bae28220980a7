package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for the support workflow taxonomy.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodePermission        = "PERMISSION_DENIED"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeTransientLookup   = "TRANSIENT_LOOKUP"
	CodeFatal             = "STORAGE_UNAVAILABLE"
	CodeInvariant         = "INVARIANT_VIOLATION"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewPermissionError(message string) error {
	return NewDomainError(CodePermission, message, http.StatusForbidden, nil)
}

func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewInvalidTransition(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidTransition, message, http.StatusConflict, details)
}

// NewTransientLookup wraps a retryable knowledge lookup failure.
func NewTransientLookup(err error) error {
	return &DomainError{
		Code:       CodeTransientLookup,
		Message:    "knowledge lookup temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewFatal wraps a storage failure that aborts the turn.
func NewFatal(err error) error {
	return &DomainError{
		Code:       CodeFatal,
		Message:    "storage unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewInvariantViolation marks a programming error. Never user-visible
// beyond a generic apology; logged with a process-level alarm.
func NewInvariantViolation(message string) error {
	return NewDomainError(CodeInvariant, message, http.StatusInternalServerError, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// UserMessage maps an error to the fixed set of user-facing strings.
// Raw internal errors are never echoed to end users.
func UserMessage(err error) string {
	switch ToDomainError(err).Code {
	case CodeValidation:
		return "I could not create a ticket from that, please clarify your request."
	case CodePermission:
		return "You do not have permission for that action."
	case CodeNotFound:
		return "No such ticket."
	case CodeInvalidTransition:
		return "The ticket status cannot be changed that way."
	default:
		return "I'm unable to process your request right now. Please try again later."
	}
}
