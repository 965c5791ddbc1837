package config

import (
	"sort"

	"iqtoolkit/analyzer/pkg/analysis"
	"iqtoolkit/analyzer/pkg/providers"
)

// ToProviderConfigs converts the providers section into adapter
// configurations, sorted by name. Disabled providers are included with
// Enabled false so the registry can log and skip them.
func (c *Config) ToProviderConfigs() []providers.ProviderConfig {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]providers.ProviderConfig, 0, len(names))
	for _, name := range names {
		p := c.Providers[name]
		out = append(out, providers.ProviderConfig{
			Name:        name,
			Protocol:    providers.Protocol(p.Protocol),
			BaseURL:     p.BaseURL,
			Model:       p.Model,
			APIKey:      p.APIKey,
			Timeout:     p.Timeout,
			RetryCount:  p.RetryCountValue(),
			Enabled:     p.IsEnabled(),
			Temperature: c.LLM.TemperatureValue(),
			MaxTokens:   c.LLM.MaxTokens,
			TopP:        c.LLM.TopP,
		})
	}
	return out
}

// Limits returns the request validation limits.
func (c *Config) Limits() analysis.Limits {
	return analysis.Limits{
		MaxQueryLength:   c.Analysis.MaxQueryLength,
		MaxContextLength: c.Analysis.MaxContextLength,
	}
}
