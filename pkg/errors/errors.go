package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode int

// Common error codes
const (
	ErrNotFound ErrorCode = iota + 1000
	ErrBadRequest
	ErrInvalidTransition
	ErrCapacityExceeded
	ErrStaleRead
	ErrUnauthorized
	ErrInternal
)

// AppError represents an application error. Core operations return these as
// typed results; the HTTP layer branches on the code to pick a status and a
// distinguishable message per kind.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error code to an HTTP status for the error middleware.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrInvalidTransition, ErrStaleRead:
		return http.StatusConflict
	case ErrCapacityExceeded:
		return http.StatusUnprocessableEntity
	case ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error constructors

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    ErrBadRequest,
		Message: message,
		Err:     err,
	}
}

// InvalidTransition rejects a state change the state machine does not permit.
// Never retried automatically.
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    ErrInvalidTransition,
		Message: fmt.Sprintf("invalid transition from %s to %s", from, to),
	}
}

// CapacityExceeded rejects a booking when the doctor's daily token cap is hit.
func CapacityExceeded(message string) *AppError {
	return &AppError{
		Code:    ErrCapacityExceeded,
		Message: message,
	}
}

// StaleRead signals a write based on a queue snapshot that has since changed.
// Callers should re-read and retry rather than overwrite.
func StaleRead(resource string) *AppError {
	return &AppError{
		Code:    ErrStaleRead,
		Message: fmt.Sprintf("%s changed since it was read", resource),
	}
}

func Unauthorized(err error) *AppError {
	return &AppError{
		Code:    ErrUnauthorized,
		Message: "unauthorized",
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal server error",
		Err:     err,
	}
}

// Is reports whether err is an AppError carrying the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
