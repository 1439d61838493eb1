package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure classes a caller can react to. Anything else is internal.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrRateLimited    = errors.New("rate limited")
)

const internalDetail = "an internal error occurred"

// AppError is a failure with a stable code and an HTTP status. Message is
// safe to show to end users verbatim; Err is for logs only.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"detail"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Retriable reports whether the same request may succeed if resent unchanged.
func (e *AppError) Retriable() bool {
	return e.Status == http.StatusServiceUnavailable || e.Status == http.StatusTooManyRequests
}

// Internal reports whether the failure is the server's fault and should be
// logged with its cause.
func (e *AppError) Internal() bool {
	return e.Status >= http.StatusInternalServerError && e.Status != http.StatusServiceUnavailable
}

func newError(status int, code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// InvalidInput is a 400 for a request that could not be decoded.
func InvalidInput(message string) *AppError {
	return newError(http.StatusBadRequest, "INVALID_INPUT", message, ErrInvalidInput)
}

// Validation is a 400 for a decoded submission that broke a content rule.
func Validation(message string) *AppError {
	return newError(http.StatusBadRequest, "VALIDATION_ERROR", message, ErrInvalidInput)
}

// ServiceUnavailable is a retriable 503. Both ErrServiceUnavail and cause
// match errors.Is on the result.
func ServiceUnavailable(code, message string, cause error) *AppError {
	return newError(http.StatusServiceUnavailable, code, message, errors.Join(ErrServiceUnavail, cause))
}

// TooManyRequests is a retriable 429.
func TooManyRequests(message string) *AppError {
	return newError(http.StatusTooManyRequests, "RATE_LIMITED", message, ErrRateLimited)
}

// Internal is a 500 whose message never reveals cause.
func Internal(cause error) *AppError {
	return newError(http.StatusInternalServerError, "INTERNAL_ERROR", internalDetail, cause)
}

// Resolve maps any error to the AppError a client should see. Errors that
// carry no AppError are classified by sentinel; unknown errors become Internal.
func Resolve(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return newError(http.StatusBadRequest, "INVALID_INPUT", err.Error(), err)
	case errors.Is(err, ErrServiceUnavail):
		return newError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service temporarily unavailable", err)
	case errors.Is(err, ErrRateLimited):
		return newError(http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", err)
	default:
		return Internal(err)
	}
}

// HTTPStatus returns the status Resolve would assign to err.
func HTTPStatus(err error) int {
	return Resolve(err).Status
}
