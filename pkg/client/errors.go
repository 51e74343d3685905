package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrEmptyQuery is returned when a query carries no addresses.
	ErrEmptyQuery = errors.New("no addresses to query")

	// ErrInvalidAddress is returned when an input is not a valid IP address.
	ErrInvalidAddress = errors.New("invalid IP address")

	// ErrBadResponse is returned when the detection service answered
	// with an unexpected response shape.
	ErrBadResponse = errors.New("unexpected response from detection service")

	// ErrRequestFailed is returned for transport-level failures talking
	// to the detection service.
	ErrRequestFailed = errors.New("detection request failed")

	// ErrQuotaExceeded is returned when the configured daily query
	// allowance would be exceeded by a remote call.
	ErrQuotaExceeded = errors.New("daily query allowance exhausted")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of remote call failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses from the service.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses from the service.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// LookupError represents a failed remote lookup with additional context.
type LookupError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lookup %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("lookup %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *LookupError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrRequestFailed
}

// classifyStatus categorizes an HTTP status code for retry decisions
// and observability.
func classifyStatus(code int) ErrorClass {
	switch {
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// retriable reports whether a failed remote call is worth repeating.
// Client errors are final; server and network errors are transient.
func retriable(err error) bool {
	var le *LookupError
	if errors.As(err, &le) {
		switch le.Class {
		case ErrorClassClient:
			return false
		case ErrorClassServer, ErrorClassNetwork:
			return true
		}
	}
	// Plain transport errors without a status are network failures.
	return true
}
