package config

import (
	"time"

	"iqtoolkit/analyzer/pkg/providerfactory"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "0.0.0.0:8000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 660 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 600 * time.Second
	DefaultMaxBodyBytes    = int64(1048576) // 1MB

	// LLM defaults
	DefaultPrimary         = "ollama"
	DefaultFallbackEnabled = true
	DefaultTemperature     = 0.1
	DefaultMaxTokens       = 2000
	DefaultTopP            = 0.9

	// Provider defaults
	DefaultProviderTimeout    = 60 * time.Second
	DefaultProviderRetryCount = 1
	MaxProviderRetryCount     = 10

	// Analysis defaults
	DefaultMaxQueryLength   = 50000
	DefaultMaxContextLength = 5000

	// Schema defaults
	DefaultSchemaMaxTables = 8
	DefaultSchemaTimeout   = 5 * time.Second

	// Health defaults
	DefaultProbeTimeout = 5 * time.Second

	// History defaults
	DefaultHistoryDriver        = "sqlite"
	DefaultHistoryPath          = "data/analyses.db"
	DefaultHistoryRetentionDays = 30
	DefaultHistoryPruneSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "iqtoolkit"

	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "iqanalyzer"
)

// DefaultLatencyBuckets are sized for LLM calls that take from under a
// second to several minutes.
var DefaultLatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// LLM defaults
	if cfg.LLM.Primary == "" {
		cfg.LLM.Primary = DefaultPrimary
	}
	if cfg.LLM.FallbackEnabled == nil {
		cfg.LLM.FallbackEnabled = Bool(DefaultFallbackEnabled)
	}
	if cfg.LLM.Temperature == nil {
		cfg.LLM.Temperature = Float(DefaultTemperature)
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = DefaultMaxTokens
	}
	if cfg.LLM.TopP == 0 {
		cfg.LLM.TopP = DefaultTopP
	}

	applyProviderDefaults(cfg)

	// Analysis defaults
	if cfg.Analysis.MaxQueryLength == 0 {
		cfg.Analysis.MaxQueryLength = DefaultMaxQueryLength
	}
	if cfg.Analysis.MaxContextLength == 0 {
		cfg.Analysis.MaxContextLength = DefaultMaxContextLength
	}

	// Schema defaults
	if cfg.Schema.MaxTables == 0 {
		cfg.Schema.MaxTables = DefaultSchemaMaxTables
	}
	if cfg.Schema.Timeout == 0 {
		cfg.Schema.Timeout = DefaultSchemaTimeout
	}

	// Health defaults
	if cfg.Health.ProbeTimeout == 0 {
		cfg.Health.ProbeTimeout = DefaultProbeTimeout
	}

	// History defaults
	if cfg.History.Driver == "" {
		cfg.History.Driver = DefaultHistoryDriver
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = DefaultHistoryRetentionDays
	}
	if cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = DefaultHistoryPruneSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		cfg.Telemetry.Metrics.Enabled = Bool(DefaultMetricsEnabled)
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if len(cfg.Telemetry.Metrics.LatencyBuckets) == 0 {
		cfg.Telemetry.Metrics.LatencyBuckets = append([]float64(nil), DefaultLatencyBuckets...)
	}
}

func applyProviderDefaults(cfg *Config) {
	for name, p := range cfg.Providers {
		if p.Protocol == "" {
			p.Protocol = string(providerfactory.InferProtocol(name))
		}
		if p.Timeout == 0 {
			p.Timeout = DefaultProviderTimeout
		}
		if p.RetryCount == nil {
			p.RetryCount = Int(DefaultProviderRetryCount)
		}
		if p.Enabled == nil {
			p.Enabled = Bool(true)
		}
		cfg.Providers[name] = p
	}
}

// Default returns a configuration with every default applied and a single
// local Ollama provider. It is used when no configuration file exists.
func Default() *Config {
	cfg := &Config{
		Providers: map[string]ProviderConfig{
			"ollama": {
				Protocol: "generate",
				BaseURL:  "http://localhost:11434",
				Model:    "llama2:13b",
				Timeout:  300 * time.Second,
			},
		},
		LLM: LLMConfig{FallbackEnabled: Bool(false)},
	}
	ApplyDefaults(cfg)
	return cfg
}
