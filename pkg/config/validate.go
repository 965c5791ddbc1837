package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "llm.primary").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// HasField reports whether any error refers to field.
func (e ValidationError) HasField(field string) bool {
	for _, err := range e.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateLLM(&cfg.LLM, cfg.Providers)...)
	errs = append(errs, validateAnalysis(&cfg.Analysis)...)
	errs = append(errs, validateSchema(&cfg.Schema)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if cfg.Health.ProbeTimeout < 0 {
		errs = append(errs, FieldError{Field: "health.probe_timeout", Message: "probe timeout must not be negative"})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.request_timeout", Message: "request timeout must be positive"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	if cfg.APIKeyEnabled && cfg.APIKey == "" {
		errs = append(errs, FieldError{
			Field:   "server.api_key",
			Message: "api key is required when api_key_enabled is set",
		})
	}

	return errs
}

// validateProviders validates provider configurations. Providers are
// visited in name order so error output is stable.
func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	enabled := 0
	for _, name := range names {
		p := providers[name]
		prefix := "providers." + name

		if !p.IsEnabled() {
			continue
		}
		enabled++

		switch p.Protocol {
		case "chat", "generate":
		default:
			errs = append(errs, FieldError{
				Field:   prefix + ".protocol",
				Message: fmt.Sprintf("protocol %q must be chat or generate", p.Protocol),
			})
		}

		if p.BaseURL == "" {
			errs = append(errs, FieldError{Field: prefix + ".base_url", Message: "base URL is required"})
		} else if u, err := url.Parse(p.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{Field: prefix + ".base_url", Message: "base URL must be an absolute http or https URL"})
		}

		if p.Model == "" {
			errs = append(errs, FieldError{Field: prefix + ".model", Message: "model is required"})
		}

		if p.Timeout <= 0 {
			errs = append(errs, FieldError{Field: prefix + ".timeout", Message: "timeout must be positive"})
		}

		if retries := p.RetryCountValue(); retries < 0 || retries > MaxProviderRetryCount {
			errs = append(errs, FieldError{
				Field:   prefix + ".retry_count",
				Message: fmt.Sprintf("retry count must be between 0 and %d", MaxProviderRetryCount),
			})
		}
	}

	if enabled == 0 {
		errs = append(errs, FieldError{
			Field:   "providers",
			Message: "at least one provider must be enabled",
		})
	}

	return errs
}

func validateLLM(cfg *LLMConfig, providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	if cfg.Primary == "" {
		errs = append(errs, FieldError{Field: "llm.primary", Message: "primary provider is required"})
	} else if p, ok := providers[cfg.Primary]; !ok {
		errs = append(errs, FieldError{
			Field:   "llm.primary",
			Message: fmt.Sprintf("primary provider %q is not configured", cfg.Primary),
		})
	} else if !p.IsEnabled() {
		errs = append(errs, FieldError{
			Field:   "llm.primary",
			Message: fmt.Sprintf("primary provider %q is disabled", cfg.Primary),
		})
	}

	if cfg.Fallback != "" {
		if _, ok := providers[cfg.Fallback]; !ok {
			errs = append(errs, FieldError{
				Field:   "llm.fallback",
				Message: fmt.Sprintf("fallback provider %q is not configured", cfg.Fallback),
			})
		}
	}

	if t := cfg.TemperatureValue(); t < 0 || t > 2 {
		errs = append(errs, FieldError{Field: "llm.temperature", Message: "temperature must be between 0 and 2"})
	}
	if cfg.MaxTokens <= 0 {
		errs = append(errs, FieldError{Field: "llm.max_tokens", Message: "max tokens must be positive"})
	}
	if cfg.TopP < 0 || cfg.TopP > 1 {
		errs = append(errs, FieldError{Field: "llm.top_p", Message: "top_p must be between 0 and 1"})
	}
	if cfg.RetryDelay < 0 {
		errs = append(errs, FieldError{Field: "llm.retry_delay", Message: "retry delay must not be negative"})
	}

	return errs
}

func validateAnalysis(cfg *AnalysisConfig) []FieldError {
	var errs []FieldError
	if cfg.MaxQueryLength <= 0 {
		errs = append(errs, FieldError{Field: "analysis.max_query_length", Message: "must be positive"})
	}
	if cfg.MaxContextLength < 0 {
		errs = append(errs, FieldError{Field: "analysis.max_context_length", Message: "must not be negative"})
	}
	return errs
}

func validateSchema(cfg *SchemaConfig) []FieldError {
	var errs []FieldError
	if cfg.MaxTables < 0 {
		errs = append(errs, FieldError{Field: "schema.max_tables", Message: "must not be negative"})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "schema.timeout", Message: "must not be negative"})
	}
	return errs
}

func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Driver {
	case "sqlite", "sqlite3", "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "history.driver",
			Message: fmt.Sprintf("driver %q must be sqlite, sqlite3 or memory", cfg.Driver),
		})
	}

	if cfg.Driver != "memory" && cfg.Path == "" {
		errs = append(errs, FieldError{Field: "history.path", Message: "path is required for SQLite drivers"})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{Field: "history.retention_days", Message: "must not be negative"})
	}
	if cfg.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "history.max_records", Message: "must not be negative"})
	}

	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "history.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("format %q must be json or text", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.IsEnabled() && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with /"})
	}

	if r := cfg.Tracing.SampleRatioValue(); r < 0 || r > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: fmt.Sprintf("sample ratio %g must be between 0 and 1", r),
		})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}

	for i := 1; i < len(cfg.Metrics.LatencyBuckets); i++ {
		if cfg.Metrics.LatencyBuckets[i] <= cfg.Metrics.LatencyBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.latency_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	return errs
}
