package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error that occurred during a fetch operation
type ErrorType string

const (
	// ErrorTypeHTTP indicates the server answered with a non-2xx status
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeTransport indicates the request never produced a usable response
	// (DNS, connection refused, timeout, unreadable or malformed body)
	ErrorTypeTransport ErrorType = "transport"
)

// FetchError represents a structured error from a fetch operation.
// StatusCode is 0 for transport errors.
type FetchError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	URL        string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Type == ErrorTypeHTTP {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewHTTPError creates an error for a non-2xx response
func NewHTTPError(url string, statusCode int) *FetchError {
	message := http.StatusText(statusCode)
	if message == "" {
		message = "unexpected status"
	}
	return &FetchError{
		Type:       ErrorTypeHTTP,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("%s for url: %s", message, url),
		URL:        url,
	}
}

// NewTransportError creates a transport error. The status code is always 0.
func NewTransportError(url, message string, cause error) *FetchError {
	return &FetchError{
		Type:    ErrorTypeTransport,
		Message: message,
		URL:     url,
		Cause:   cause,
	}
}

// IsHTTPError reports whether err is (or wraps) a FetchError of type http
func IsHTTPError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Type == ErrorTypeHTTP
}

// IsTransportError reports whether err is (or wraps) a FetchError of type transport
func IsTransportError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Type == ErrorTypeTransport
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an HTTP error
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}
