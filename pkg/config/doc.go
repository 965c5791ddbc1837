// Package config provides configuration management for the analyzer service.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("config.yaml")                 // file only
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml") // file + .env + environment
//
// # Environment Variable Overrides
//
// A .env file next to the configuration file, and one in the working
// directory, are loaded first. Variables already set in the process
// environment are never replaced by .env values.
//
// Environment variables use the IQTOOLKIT_ prefix:
//
//   - IQTOOLKIT_LISTEN_ADDRESS overrides server.listen_address
//   - IQTOOLKIT_LLM_PRIMARY overrides llm.primary
//   - IQTOOLKIT_PROVIDERS_OPENAI_API_KEY overrides providers.openai.api_key
//
// A provider can be declared entirely through IQTOOLKIT_PROVIDERS_<NAME>_*
// variables. OLLAMA_BASE_URL, OLLAMA_MODEL and OPENAI_API_KEY are accepted
// as aliases with lower precedence than the prefixed names.
//
// # Configuration Precedence
//
//  1. Values from YAML file
//  2. Environment variable overrides
//  3. Default values for anything still unset (defaults.go)
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// Watcher watches the configuration file with fsnotify and calls
// ReloadConfig after a debounce interval. The global configuration is an
// atomic pointer: a reload that fails validation leaves it untouched, and
// readers holding the previous *Config keep a consistent snapshot.
//
// # Example Configuration
//
//	llm:
//	  primary: ollama
//	  fallback: openai
//
//	providers:
//	  ollama:
//	    protocol: generate
//	    base_url: "http://localhost:11434"
//	    model: "llama2:13b"
//	    timeout: 300s
//	    retry_count: 3
//	  openai:
//	    protocol: chat
//	    base_url: "https://api.openai.com/v1"
//	    model: "gpt-4o-mini"
//	    retry_count: 1
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
