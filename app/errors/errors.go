package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents different types of application errors
type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "VALIDATION"
	ErrCodeDuplicate       ErrorCode = "DUPLICATE"
	ErrCodeChallengeFailed ErrorCode = "CHALLENGE_FAILED"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeConfiguration   ErrorCode = "CONFIGURATION_MISSING"
	ErrCodeTransport       ErrorCode = "TRANSPORT_FAILURE"
)

// AppError represents an application error with code and HTTP status
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
	Status  int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidation creates a "validation" error for malformed or missing fields.
// Always user-facing, never fatal.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NewDuplicate creates a "duplicate" error (name or email collision)
func NewDuplicate(message string) *AppError {
	return &AppError{
		Code:    ErrCodeDuplicate,
		Message: message,
		Status:  http.StatusConflict,
	}
}

// NewChallengeFailed creates a failed-captcha error. The caller is
// expected to reissue a fresh challenge alongside it.
func NewChallengeFailed(message string) *AppError {
	return &AppError{
		Code:    ErrCodeChallengeFailed,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// NewNotFound creates a deliberately generic "not found" error so unknown
// ids and addresses cannot be enumerated.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: message,
		Status:  http.StatusNotFound,
	}
}

// NewConfiguration creates a configuration error. Fatal to the
// component's availability: it refuses to serve until reconfigured.
func NewConfiguration(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: message,
		Status:  http.StatusServiceUnavailable,
	}
}

// NewTransport creates a transport error for storage or mail collaborator
// failures that the caller is synchronously waiting on.
func NewTransport(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeTransport,
		Message: message,
		Err:     err,
		Status:  http.StatusInternalServerError,
	}
}
