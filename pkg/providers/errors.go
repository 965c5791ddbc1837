package providers

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrorKind classifies a provider failure. Retry and fallback decisions
// branch on the kind, never on the error text.
type ErrorKind int

const (
	// KindUnavailable means the backend could not be reached.
	KindUnavailable ErrorKind = iota + 1

	// KindTimeout means the invocation exceeded its deadline.
	KindTimeout

	// KindProtocol means the backend answered with a non-2xx status or a
	// body that could not be interpreted.
	KindProtocol

	// KindAuth means the backend rejected the credentials (401/403).
	KindAuth
)

// String returns the lower-case name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol_error"
	case KindAuth:
		return "auth_error"
	default:
		return "unknown"
	}
}

// maxMessageLength bounds how much of a backend response body is kept in an
// error message.
const maxMessageLength = 256

// ProviderError is a classified invocation or probe failure.
// It never carries credentials; Message holds a truncated body excerpt or a
// transport error description.
type ProviderError struct {
	// Provider is the name of the provider that failed
	Provider string

	// Kind classifies the failure
	Kind ErrorKind

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is a sanitized description of the failure
	Message string

	// Transient marks protocol errors that may succeed on retry (5xx, 429)
	Transient bool

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q %s: %s", e.Provider, e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure may succeed on another attempt.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindUnavailable, KindTimeout:
		return true
	case KindProtocol:
		return e.Transient
	default:
		return false
	}
}

// NewProviderError creates a classified provider error, truncating message.
func NewProviderError(provider string, kind ErrorKind, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Kind:       kind,
		StatusCode: statusCode,
		Message:    truncate(message, maxMessageLength),
		Cause:      cause,
	}
}

// NewUnavailableError reports a backend that could not be reached.
func NewUnavailableError(provider string, cause error) *ProviderError {
	return NewProviderError(provider, KindUnavailable, 0, describe(cause), cause)
}

// NewTimeoutError reports an invocation that exceeded its deadline.
func NewTimeoutError(provider string, cause error) *ProviderError {
	return NewProviderError(provider, KindTimeout, 0, describe(cause), cause)
}

// NewAuthError reports rejected credentials.
func NewAuthError(provider string, statusCode int, message string) *ProviderError {
	return NewProviderError(provider, KindAuth, statusCode, message, nil)
}

// NewProtocolError reports an unusable backend answer. Transient protocol
// errors are retried.
func NewProtocolError(provider string, statusCode int, message string, transient bool, cause error) *ProviderError {
	e := NewProviderError(provider, KindProtocol, statusCode, message, cause)
	e.Transient = transient
	return e
}

// KindOf returns the kind of the first ProviderError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsRetryable reports whether err is a ProviderError that may succeed on
// retry. Errors that are not ProviderErrors are not retryable.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// ConfigError represents an invalid provider configuration.
type ConfigError struct {
	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid provider configuration for field %q: %s", e.Field, e.Message)
}

func describe(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
