package routing

import (
	"errors"
	"fmt"
)

// ErrConfiguration is matched by every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("routing configuration error")

// ExhaustedError is returned by RetryPolicy when a provider produced no
// result: either the retry budget was spent or a non-retryable failure
// stopped the loop early.
type ExhaustedError struct {
	// Provider is the provider that was attempted.
	Provider string

	// Attempts is the number of invocations that were made.
	Attempts int

	// LastErr is the last observed provider error.
	LastErr error

	// Retryable reports whether LastErr was classified as retryable, i.e.
	// the loop ended because the budget was spent.
	Retryable bool
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("provider %q exhausted after %d attempt(s): %v", e.Provider, e.Attempts, e.LastErr)
}

// Unwrap returns the last provider error.
func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// AllProvidersFailedError is the terminal FAIL outcome of the orchestrator.
// Fallback is nil when no fallback was attempted.
type AllProvidersFailedError struct {
	Primary  *ExhaustedError
	Fallback *ExhaustedError
}

// Error implements the error interface.
func (e *AllProvidersFailedError) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("all providers failed: primary %q: %v", e.Primary.Provider, e.Primary.LastErr)
	}
	return fmt.Sprintf("all providers failed: primary %q: %v; fallback %q: %v",
		e.Primary.Provider, e.Primary.LastErr, e.Fallback.Provider, e.Fallback.LastErr)
}

// Unwrap returns both exhausted errors for errors.Is/As traversal.
func (e *AllProvidersFailedError) Unwrap() []error {
	if e.Fallback == nil {
		return []error{e.Primary}
	}
	return []error{e.Primary, e.Fallback}
}

// ConfigurationError reports an orchestrator that cannot be built or run
// from its configuration, such as an unknown primary provider.
type ConfigurationError struct {
	// Provider is the offending provider name, if any.
	Provider string

	// Message describes the problem.
	Message string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("routing configuration error for provider %q: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("routing configuration error: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is().
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
