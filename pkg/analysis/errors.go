package analysis

import "fmt"

// ValidationError reports a malformed analysis request. It is surfaced to
// clients and never retried.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func lengthMessage(field string, got, limit int) string {
	return fmt.Sprintf("%s is %d characters, maximum is %d", field, got, limit)
}
