// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Request errors
	ErrBadRequest  = errors.New("bad request")
	ErrUnsupported = errors.New("unsupported operation")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrInvalidOperation = errors.New("invalid operation for this entity")
	ErrAlreadyProcessed = errors.New("already processed")

	// Authorization errors
	ErrNotAuthorized = errors.New("not authorized")
	ErrForbidden     = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "enrollment", "quiz", "course"
	Op      string // Operation that failed, e.g., "Provision", "UpdateProgress"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Enrollment domain errors
var (
	ErrEnrollmentNotFound      = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrEnrollmentAlreadyExists = NewDomainError("enrollment", "Provision", ErrAlreadyExists, "enrollment already exists for student and course")
	ErrEnrollmentNotActive     = NewDomainError("enrollment", "CheckStatus", ErrBadRequest, "enrollment is not active")
	ErrEnrollmentNotOwned      = NewDomainError("enrollment", "CheckOwner", ErrNotAuthorized, "enrollment does not belong to this student")
	ErrProgressEntryNotFound   = NewDomainError("enrollment", "FindProgress", ErrNotFound, "progress entry not found")
	ErrProgressEntryExists     = NewDomainError("enrollment", "AddProgress", ErrAlreadyExists, "progress entry already exists for this unit")
	ErrWrongUnitType           = NewDomainError("enrollment", "UpdateProgress", ErrInvalidOperation, "operation not valid for this unit type")
)

// Quiz domain errors
var (
	ErrQuizNotFound            = NewDomainError("quiz", "Find", ErrNotFound, "quiz not found")
	ErrUnsupportedQuestionType = NewDomainError("quiz", "Evaluate", ErrUnsupported, "only multiple-choice questions are supported")
	ErrEmptyQuiz               = NewDomainError("quiz", "Evaluate", ErrInvalidInput, "quiz has no questions")
)

// Course domain errors
var (
	ErrCourseNotFound = NewDomainError("course", "Find", ErrNotFound, "course not found")
)

// Event processing errors
var (
	ErrEventAlreadyProcessed = NewDomainError("event", "Process", ErrAlreadyProcessed, "event has already been processed")
	ErrInvalidEventPayload   = NewDomainError("event", "Decode", ErrInvalidFormat, "invalid event payload")
)

// External service errors
var (
	ErrCertificateServiceDown = NewDomainError("certificate", "Request", ErrServiceUnavailable, "certificate service is unavailable")
	ErrPublishFailed          = NewDomainError("messaging", "Publish", ErrExternalService, "failed to publish event")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsBadRequest checks if the error is a bad request error.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsNotAuthorized checks if the error is an authorization error.
func IsNotAuthorized(err error) bool {
	return errors.Is(err, ErrNotAuthorized) || errors.Is(err, ErrForbidden)
}

// IsUnsupported checks if the error is an "unsupported" error.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsRetryable checks if the operation can be retried.
// Domain errors are never retryable; only transient infrastructure failures are.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
