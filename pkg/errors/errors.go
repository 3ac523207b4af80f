// Package errors holds the sentinel errors shared across packages and maps
// them onto HTTP responses.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidDocument = errors.New("invalid document")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	ErrNotConfigured   = errors.New("not configured")
	ErrUnavailable     = errors.New("dependency unavailable")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrTimeout         = errors.New("request timeout")
)

// statuses is checked in order; the first sentinel found in the chain wins.
var statuses = []struct {
	sentinel error
	status   int
}{
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrInvalidDocument, http.StatusBadRequest},
	{ErrCorruptSnapshot, http.StatusUnprocessableEntity},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrNotConfigured, http.StatusNotImplemented},
	{ErrTimeout, http.StatusGatewayTimeout},
	{ErrUnavailable, http.StatusServiceUnavailable},
}

// AppError attaches a client-facing message and, optionally, a status code
// to a sentinel.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// New returns an AppError. A zero statusCode defers to the sentinel's
// status.
func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	for _, s := range statuses {
		if errors.Is(err, s.sentinel) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Public returns the status for err and the message safe to show a client.
// Unclassified failures are reported as "internal error".
func Public(err error) (int, string) {
	status := HTTPStatusCode(err)
	if status == http.StatusInternalServerError {
		return status, "internal error"
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return status, appErr.Message
	}
	return status, err.Error()
}

// Write sends err as a JSON {"error": message} body.
func Write(w http.ResponseWriter, err error) int {
	status, message := Public(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
	return status
}
