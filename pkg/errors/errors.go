// Package errors defines the API error type rendered in the response
// envelope and the catalogue of errors handlers return.
package errors

import (
	"errors"
	"net/http"
)

// AppError is an error with a stable code and the HTTP status it maps to.
// Internal is logged but never serialised.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
	Details    any    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return "<nil>"
	case e.Internal != nil:
		return e.Message + ": " + e.Internal.Error()
	default:
		return e.Message
	}
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches any AppError carrying the same code, so errors.Is(err, ErrNotFound)
// holds for a NewNotFound result.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if e == nil || !errors.As(target, &other) || other == nil {
		return false
	}
	return e.Code == other.Code
}

// Status is the HTTP status to answer with, 500 when none is set.
func (e *AppError) Status() int {
	if e == nil || e.StatusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.StatusCode
}

// WithInternal returns a copy carrying err as its cause.
func (e *AppError) WithInternal(err error) *AppError {
	return e.clone(func(c *AppError) { c.Internal = err })
}

// WithDetails returns a copy carrying structured details, such as per-field
// validation messages.
func (e *AppError) WithDetails(details any) *AppError {
	return e.clone(func(c *AppError) { c.Details = details })
}

func (e *AppError) clone(edit func(*AppError)) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	edit(&cpy)
	return &cpy
}

var (
	ErrUnauthorized     = New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrInvalidPIN       = New("INVALID_PIN", "Invalid PIN", http.StatusUnauthorized)
	ErrForbidden        = New("FORBIDDEN", "Permission denied", http.StatusForbidden)
	ErrNotFound         = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrBadRequest       = New("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrConflict         = New("CONFLICT", "Resource already exists", http.StatusConflict)
	ErrPayloadTooLarge  = New("PAYLOAD_TOO_LARGE", "File exceeds the maximum allowed size", http.StatusRequestEntityTooLarge)
	ErrUnsupportedMedia = New("UNSUPPORTED_MEDIA_TYPE", "Unsupported file type", http.StatusUnsupportedMediaType)
	ErrRateLimit        = New("RATE_LIMIT_EXCEEDED", "Too many login attempts, please try again later", http.StatusTooManyRequests)
	ErrCSRFInvalid      = New("CSRF_TOKEN_INVALID", "Invalid CSRF token", http.StatusForbidden)
	ErrUpstream         = New("UPSTREAM_FAILURE", "Storage or database operation failed", http.StatusBadGateway)
	ErrInternalServer   = New("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
)

func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

// FromError returns the AppError inside err, or ErrInternalServer wrapping it.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}

func NewBadRequest(message string) *AppError {
	return ErrBadRequest.clone(func(c *AppError) { c.Message = message })
}

func NewNotFound(message string) *AppError {
	return ErrNotFound.clone(func(c *AppError) { c.Message = message })
}

func NewConflict(message string) *AppError {
	return ErrConflict.clone(func(c *AppError) { c.Message = message })
}
