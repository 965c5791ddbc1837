package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IQTOOLKIT_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention IQTOOLKIT_SECTION_FIELD (e.g., IQTOOLKIT_LLM_PRIMARY).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load .env files (never overriding variables already set)
// 2. Load YAML from file, or start from Default when path is empty
// 3. Apply environment variable overrides
// 4. Apply default values
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	LoadDotEnv(path)

	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = parseFile(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return &cfg, nil
}

// LoadDotEnv loads a .env file next to the configuration file and one in the
// working directory. Variables already present in the environment win.
// Missing files are ignored.
func LoadDotEnv(configPath string) {
	var candidates []string
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	candidates = append(candidates, ".env")

	seen := make(map[string]bool)
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true

		if err := godotenv.Load(abs); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("failed to load .env file", "path", abs, "error", err)
			}
			continue
		}
		slog.Debug("loaded .env file", "path", abs)
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format IQTOOLKIT_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv(EnvPrefix + "LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv(EnvPrefix + "API_KEY"); val != "" {
		cfg.Server.APIKey = val
	}
	if val := os.Getenv(EnvPrefix + "API_KEY_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.APIKeyEnabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}

	// LLM overrides
	if val := os.Getenv(EnvPrefix + "LLM_PRIMARY"); val != "" {
		cfg.LLM.Primary = val
	}
	if val := os.Getenv(EnvPrefix + "LLM_FALLBACK"); val != "" {
		cfg.LLM.Fallback = val
	}
	if val := os.Getenv(EnvPrefix + "LLM_FALLBACK_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.LLM.FallbackEnabled = Bool(b)
		}
	}
	if val := os.Getenv(EnvPrefix + "LLM_TEMPERATURE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.LLM.Temperature = Float(f)
		}
	}
	if val := os.Getenv(EnvPrefix + "LLM_MAX_TOKENS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.LLM.MaxTokens = i
		}
	}

	// Telemetry overrides
	if val := os.Getenv(EnvPrefix + "LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv(EnvPrefix + "LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv(EnvPrefix + "TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}

	// Schema and history overrides
	if val := os.Getenv(EnvPrefix + "SCHEMA_DSN"); val != "" {
		cfg.Schema.DSN = val
	}
	if val := os.Getenv(EnvPrefix + "HISTORY_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.History.Enabled = b
		}
	}
	if val := os.Getenv(EnvPrefix + "HISTORY_PATH"); val != "" {
		cfg.History.Path = val
	}

	applyAliasOverrides(cfg)

	for _, name := range providerNames(cfg) {
		applyProviderEnvOverrides(cfg, name)
	}
}

// applyAliasOverrides honours the unprefixed variable names that deployments
// of the service already use. Prefixed variables are applied afterwards and win.
func applyAliasOverrides(cfg *Config) {
	aliases := []struct {
		env, provider string
		set           func(*ProviderConfig, string)
	}{
		{"OLLAMA_BASE_URL", "ollama", func(p *ProviderConfig, v string) { p.BaseURL = v }},
		{"OLLAMA_MODEL", "ollama", func(p *ProviderConfig, v string) { p.Model = v }},
		{"OPENAI_API_KEY", "openai", func(p *ProviderConfig, v string) { p.APIKey = v }},
	}

	for _, alias := range aliases {
		val := os.Getenv(alias.env)
		if val == "" {
			continue
		}
		provider, ok := cfg.Providers[alias.provider]
		if !ok {
			continue
		}
		alias.set(&provider, val)
		cfg.Providers[alias.provider] = provider
	}
}

var providerEnvFields = []string{"BASE_URL", "MODEL", "API_KEY", "TIMEOUT", "RETRY_COUNT", "ENABLED", "PROTOCOL"}

// providerNames returns configured provider names plus any provider named
// only by an IQTOOLKIT_PROVIDERS_<NAME>_<FIELD> variable.
func providerNames(cfg *Config) []string {
	names := make(map[string]bool, len(cfg.Providers))
	for name := range cfg.Providers {
		names[name] = true
	}

	prefix := EnvPrefix + "PROVIDERS_"
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		for _, field := range providerEnvFields {
			if name, ok := strings.CutSuffix(rest, "_"+field); ok && name != "" {
				names[strings.ToLower(name)] = true
				break
			}
		}
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// applyProviderEnvOverrides applies environment variable overrides for a specific provider.
// Provider environment variables follow the format IQTOOLKIT_PROVIDERS_<NAME>_<FIELD>
// where NAME is the uppercase provider name.
func applyProviderEnvOverrides(cfg *Config, providerName string) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}

	provider, exists := cfg.Providers[providerName]

	prefix := fmt.Sprintf("%sPROVIDERS_%s_", EnvPrefix, strings.ToUpper(providerName))

	modified := false

	if val := os.Getenv(prefix + "PROTOCOL"); val != "" {
		provider.Protocol = val
		modified = true
	}
	if val := os.Getenv(prefix + "BASE_URL"); val != "" {
		provider.BaseURL = val
		modified = true
	}
	if val := os.Getenv(prefix + "MODEL"); val != "" {
		provider.Model = val
		modified = true
	}
	if val := os.Getenv(prefix + "API_KEY"); val != "" {
		provider.APIKey = val
		modified = true
	}
	if val := os.Getenv(prefix + "TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			provider.Timeout = d
			modified = true
		}
	}
	if val := os.Getenv(prefix + "RETRY_COUNT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			provider.RetryCount = Int(i)
			modified = true
		}
	}
	if val := os.Getenv(prefix + "ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			provider.Enabled = Bool(b)
			modified = true
		}
	}

	// Only update the map if we found at least one override
	if modified || exists {
		cfg.Providers[providerName] = provider
	}
}
