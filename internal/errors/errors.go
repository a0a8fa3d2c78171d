package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failure for callers.
type ErrorCode string

const (
	ErrUnauthenticated ErrorCode = "UNAUTHENTICATED"  // 401
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT" // 400
	ErrAccessDenied    ErrorCode = "ACCESS_DENIED"    // 403
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrConflict        ErrorCode = "CONFLICT"         // 409
	ErrUnavailable     ErrorCode = "UNAVAILABLE"      // 503
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// AppError is a classified error with an HTTP status and a human-readable reason.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func NewUnauthenticated() *AppError {
	return &AppError{
		Code:    ErrUnauthenticated,
		Status:  http.StatusUnauthorized,
		Message: "caller identity required",
	}
}

func NewInvalidArgument(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidArgument,
		Status:  http.StatusBadRequest,
		Message: msg,
	}
}

func NewAccessDenied(msg string) *AppError {
	return &AppError{
		Code:    ErrAccessDenied,
		Status:  http.StatusForbidden,
		Message: msg,
	}
}

// NewNotFound builds a 404 for the given kind of resource ("thread", "user", ...).
func NewNotFound(kind, identifier string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

func NewConflict(msg string) *AppError {
	return &AppError{
		Code:    ErrConflict,
		Status:  http.StatusConflict,
		Message: msg,
	}
}

func NewUnavailable(msg string) *AppError {
	return &AppError{
		Code:    ErrUnavailable,
		Status:  http.StatusServiceUnavailable,
		Message: msg,
	}
}

// NewInternal hides the cause from the message but keeps it for logging via Unwrap.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Status:  http.StatusInternalServerError,
		Message: "internal error",
		cause:   err,
	}
}

// Is reports whether err is (or wraps) an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// From classifies any error. Unclassified errors become INTERNAL.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}
