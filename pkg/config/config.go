package config

import "time"

// Config is the root configuration structure for the analyzer service.
// It covers the HTTP server, LLM routing, provider backends, request limits,
// schema context, health probing, analysis history and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, body limits and optional API key authentication.
	Server ServerConfig `yaml:"server"`

	// LLM selects the primary and fallback providers and the generation
	// parameters shared by every backend.
	LLM LLMConfig `yaml:"llm"`

	// Providers contains one entry per LLM backend.
	// Keys are provider names (e.g., "ollama", "openai").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Analysis contains request validation limits.
	Analysis AnalysisConfig `yaml:"analysis"`

	// Schema configures optional Postgres schema context enrichment.
	Schema SchemaConfig `yaml:"schema"`

	// Health configures provider liveness probing.
	Health HealthConfig `yaml:"health"`

	// History configures persistence of analysis results.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "0.0.0.0:8000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must exceed RequestTimeout so slow analyses can answer.
	// Default: 660s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout is the caller-side deadline for one analysis request.
	// Default: 600s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxBodyBytes limits the size of request bodies.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// APIKeyEnabled turns on X-API-Key authentication for analysis and
	// history endpoints.
	APIKeyEnabled bool `yaml:"api_key_enabled"`

	// APIKey is the expected key when APIKeyEnabled is set.
	APIKey string `yaml:"api_key"`
}

// LLMConfig selects providers and generation parameters.
type LLMConfig struct {
	// Primary is the provider tried first.
	// Default: "ollama"
	Primary string `yaml:"primary"`

	// FallbackEnabled turns on the single fallback attempt.
	// Default: true
	FallbackEnabled *bool `yaml:"fallback_enabled"`

	// Fallback is the provider tried after the primary is exhausted.
	Fallback string `yaml:"fallback"`

	// Temperature is the sampling temperature. Default: 0.1
	Temperature *float64 `yaml:"temperature"`

	// MaxTokens caps completion length for chat backends. Default: 2000
	MaxTokens int `yaml:"max_tokens"`

	// TopP is the nucleus sampling value for generate backends. Default: 0.9
	TopP float64 `yaml:"top_p"`

	// RetryDelay is the pause between retry attempts. Default: 0
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// ProviderConfig contains configuration for a single LLM backend.
type ProviderConfig struct {
	// Protocol is "chat" or "generate". Inferred from the name when empty.
	Protocol string `yaml:"protocol"`

	// BaseURL is the base URL of the backend API.
	// Example: "http://localhost:11434"
	BaseURL string `yaml:"base_url"`

	// Model is the model identifier sent with each call.
	Model string `yaml:"model"`

	// APIKey is the bearer token for chat backends.
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single call. Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// RetryCount is the number of retries after the first attempt.
	// Default: 1
	RetryCount *int `yaml:"retry_count"`

	// Enabled controls whether the provider is registered. Default: true
	Enabled *bool `yaml:"enabled"`
}

// AnalysisConfig contains request validation limits, counted in characters.
type AnalysisConfig struct {
	// MaxQueryLength. Default: 50000
	MaxQueryLength int `yaml:"max_query_length"`

	// MaxContextLength. Default: 5000
	MaxContextLength int `yaml:"max_context_length"`
}

// SchemaConfig configures schema context lookups.
type SchemaConfig struct {
	// DSN is a Postgres connection string. Empty disables enrichment.
	DSN string `yaml:"dsn"`

	// MaxTables limits how many referenced tables are described.
	// Default: 8
	MaxTables int `yaml:"max_tables"`

	// Timeout bounds one schema lookup. Default: 5s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig configures liveness probing.
type HealthConfig struct {
	// ProbeTimeout bounds a single provider probe. Default: 5s
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// HistoryConfig configures analysis history storage.
type HistoryConfig struct {
	// Enabled turns history recording on. Default: false
	Enabled bool `yaml:"enabled"`

	// Driver is "sqlite" (pure Go), "sqlite3" (cgo) or "memory".
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the SQLite database file. Default: "data/analyses.db"
	Path string `yaml:"path"`

	// RetentionDays deletes records older than this. 0 keeps forever.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords keeps at most this many records. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression for retention runs.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry spans.
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig configures OTLP trace export. Disabled tracing installs
// no exporter and spans cost nothing.
type TracingConfig struct {
	// Enabled turns on span export. Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of root traces recorded, 0 to 1.
	// Default: 1
	SampleRatio *float64 `yaml:"sample_ratio"`

	// ServiceName is the service.name resource attribute.
	// Default: "iqanalyzer"
	ServiceName string `yaml:"service_name"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line in records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled exposes metrics. Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path for the exposition endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name. Default: "iqtoolkit"
	Namespace string `yaml:"namespace"`

	// LatencyBuckets are the provider latency histogram buckets in seconds.
	LatencyBuckets []float64 `yaml:"latency_buckets"`
}

// IsFallbackEnabled reports whether the fallback attempt is on.
func (c LLMConfig) IsFallbackEnabled() bool {
	return boolValue(c.FallbackEnabled, DefaultFallbackEnabled)
}

// TemperatureValue returns the configured temperature or the default.
func (c LLMConfig) TemperatureValue() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// IsEnabled reports whether the provider is enabled.
func (c ProviderConfig) IsEnabled() bool {
	return boolValue(c.Enabled, true)
}

// RetryCountValue returns the configured retry count or the default.
func (c ProviderConfig) RetryCountValue() int {
	if c.RetryCount == nil {
		return DefaultProviderRetryCount
	}
	return *c.RetryCount
}

// IsEnabled reports whether metrics are exposed.
func (c MetricsConfig) IsEnabled() bool {
	return boolValue(c.Enabled, DefaultMetricsEnabled)
}

// SampleRatioValue returns the configured ratio or the default.
func (c TracingConfig) SampleRatioValue() float64 {
	if c.SampleRatio == nil {
		return DefaultTracingSampleRatio
	}
	return *c.SampleRatio
}

func boolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// Bool returns a pointer to b, for building configurations in code.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i.
func Int(i int) *int { return &i }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
