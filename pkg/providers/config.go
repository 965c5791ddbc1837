package providers

import (
	"net/url"
	"time"
)

// Adapter defaults applied by WithDefaults.
const (
	DefaultTimeout             = 60 * time.Second
	DefaultMaxIdleConns        = 10
	DefaultMaxIdleConnsPerHost = 5
	DefaultIdleConnTimeout     = 90 * time.Second
)

// Validate checks the fields every adapter needs.
func (c ProviderConfig) Validate() error {
	if c.Name == "" {
		return &ConfigError{Field: "name", Message: "provider name is required"}
	}

	if c.BaseURL == "" {
		return &ConfigError{Field: "base_url", Message: "base URL is required"}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "base_url", Message: "base URL must be an absolute http(s) URL"}
	}

	if c.Model == "" {
		return &ConfigError{Field: "model", Message: "model is required"}
	}

	if _, err := ParseProtocol(string(c.Protocol)); err != nil {
		return &ConfigError{Field: "protocol", Message: err.Error()}
	}

	if c.Timeout < 0 {
		return &ConfigError{Field: "timeout", Message: "timeout must not be negative"}
	}

	if c.RetryCount < 0 {
		return &ConfigError{Field: "retry_count", Message: "retry count must not be negative"}
	}

	return nil
}

// WithDefaults returns a copy of c with zero-valued pool and timeout settings
// replaced by defaults.
func (c ProviderConfig) WithDefaults() ProviderConfig {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost == 0 {
		c.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = DefaultIdleConnTimeout
	}
	return c
}
