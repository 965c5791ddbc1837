package cli

import (
	"errors"
	"fmt"

	"iqtoolkit/analyzer/pkg/analysis"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitAnalysis = 3
)

// ConfigError reports an invalid flag or configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError wraps the failure of one subcommand.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode maps a command error to the process exit status. Invalid input
// exits 2, a failed analysis exits 3, anything else exits 1.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cfgErr *ConfigError
	var valErr *analysis.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &valErr) {
		return ExitUsage
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Command == "analyze" {
		return ExitAnalysis
	}
	return ExitFailure
}
