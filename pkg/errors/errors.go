package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an AppError for the transport layer.
type ErrorType string

const (
	// ErrorTypeValidation marks a request that cannot be accepted as given.
	ErrorTypeValidation ErrorType = "VALIDATION"
	// ErrorTypeInternal marks a storage or programming failure.
	ErrorTypeInternal ErrorType = "INTERNAL"
	// ErrorTypeExternal marks a failed, timed out or non-success answer from
	// the upstream search service.
	ErrorTypeExternal ErrorType = "EXTERNAL"
	// ErrorTypeUnavailable marks a backing service that is down or shedding load.
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err, or anything it wraps, is an AppError of type t.
func Is(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

func NewValidationError(message string) *AppError {
	return newError(ErrorTypeValidation, message, nil)
}

func NewInternalError(message string, err error) *AppError {
	return newError(ErrorTypeInternal, message, err)
}

// NewExternalError wraps a failure of the upstream search service.
func NewExternalError(message string, err error) *AppError {
	return newError(ErrorTypeExternal, message, err)
}

// NewUnavailableError wraps a dependency that cannot be reached right now,
// such as an open circuit breaker.
func NewUnavailableError(message string, err error) *AppError {
	return newError(ErrorTypeUnavailable, message, err)
}
