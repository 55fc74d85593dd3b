package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// TransportError is a failure to talk to a provider at all: network errors,
// timeouts, or a response that could not be read. It is fatal to the request.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx HTTP response from a provider.
// Recognizers turn it into an "Error: <status>" note rather than failing.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error (status %d)", e.Provider, e.StatusCode)
}

// Note is the explanatory text recorded on a degenerate Prescription.
func (e *StatusError) Note() string {
	return "Error: " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// SchemaError is a provider response whose shape does not match the declared
// schema. The response reached us, so recognizers record it as data.
type SchemaError struct {
	Provider string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s response does not match schema: %v", e.Provider, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// parseRetryAfter parses a Retry-After header value in seconds or HTTP-date form.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
