package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound            = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict            = New("CONFLICT", http.StatusConflict, "conflict")
	ErrAllocationExhausted = New("ALLOCATION_EXHAUSTED", http.StatusServiceUnavailable, "unable to allocate a unique instructor code")
	ErrValidation          = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrUpstream            = New("UPSTREAM_FAILURE", http.StatusBadGateway, "upstream service failed")
	ErrInvalidCredentials  = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrUnauthorized        = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden           = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrInternal            = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// ErrCacheMiss is returned by cache repositories when a key is absent.
	ErrCacheMiss = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Portal specific errors. Each keeps the taxonomy code of its family so clients
// can branch on Code while still reading a precise message.
var (
	ErrInvalidInstructorCode = New(ErrValidation.Code, http.StatusBadRequest, "Invalid instructor code. Please check with your instructor.")
	ErrCodeAlreadyInUse      = New(ErrConflict.Code, http.StatusConflict, "This instructor code is already in use. Please generate a new one.")
	ErrNoAccount             = New(ErrNotFound.Code, http.StatusNotFound, "No account found with this email address")
	ErrRoleMismatch          = New(ErrValidation.Code, http.StatusBadRequest, "role does not match account")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Is reports whether err carries the same code and status as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code && e.Status == target.Status
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
