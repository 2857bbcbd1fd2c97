package errorx

import (
	"errors"
	"fmt"
)

// Sentinel errors for the check pipeline taxonomy.
var (
	// ErrNetworkUnavailable indicates the network policy disallows the check
	// or no usable connectivity exists. Non-fatal: it never counts as a
	// source failure.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrEmptyContent indicates a fetch returned no usable content.
	ErrEmptyContent = errors.New("empty content")
	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")
	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("not found")
	// ErrCheckInFlight indicates a check for the same source is already
	// running.
	ErrCheckInFlight = errors.New("check already in flight")
	// ErrShuttingDown indicates the executor no longer accepts tasks.
	ErrShuttingDown = errors.New("shutting down")
)

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ValidationError reports a field-specific validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// FetchError reports a failed content fetch with its URL context.
type FetchError struct {
	URL     string
	Reason  string
	Wrapped error
}

func (e *FetchError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("fetch error for '%s': %s: %v", e.URL, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("fetch error for '%s': %s", e.URL, e.Reason)
}

func (e *FetchError) Unwrap() error {
	return e.Wrapped
}

// NewFetchError creates a new fetch error.
func NewFetchError(url, reason string, wrapped error) *FetchError {
	return &FetchError{URL: url, Reason: reason, Wrapped: wrapped}
}

// HTTPError reports a non-success HTTP response.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d error for '%s'", e.StatusCode, e.URL)
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, url string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, URL: url}
}
