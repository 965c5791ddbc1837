package providerfactory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"iqtoolkit/analyzer/pkg/providers"
)

// ErrNoEnabledProviders is returned when a registry would be empty.
var ErrNoEnabledProviders = errors.New("at least one provider must be enabled")

// ErrProviderNotFound is returned by Get for unknown names.
var ErrProviderNotFound = errors.New("provider not found")

// Registry is an immutable, name-keyed set of provider instances built once
// from configuration. It is safe for unlimited concurrent reads; a
// configuration reload builds a new Registry instead of mutating this one.
type Registry struct {
	providers map[string]providers.Provider
	names     []string
}

// Builder creates a provider from its configuration. NewProvider is the
// default; tests substitute fakes.
type Builder func(providers.ProviderConfig) (providers.Provider, error)

// NewRegistry creates providers for every enabled configuration.
// Disabled entries are skipped. Empty or duplicate names, adapter
// construction failures and an empty result are configuration errors.
func NewRegistry(configs []providers.ProviderConfig) (*Registry, error) {
	return NewRegistryWithBuilder(configs, NewProvider)
}

// NewRegistryWithBuilder is NewRegistry with a custom provider builder.
func NewRegistryWithBuilder(configs []providers.ProviderConfig, build Builder) (*Registry, error) {
	r := &Registry{providers: make(map[string]providers.Provider, len(configs))}

	for _, config := range configs {
		if config.Name == "" {
			r.Close()
			return nil, &providers.ConfigError{Field: "name", Message: "provider name is required"}
		}
		if _, dup := r.providers[config.Name]; dup {
			r.Close()
			return nil, &providers.ConfigError{Field: "name", Message: fmt.Sprintf("duplicate provider name %q", config.Name)}
		}
		if !config.Enabled {
			slog.Debug("provider disabled, skipping", "name", config.Name)
			continue
		}

		provider, err := build(config)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.providers[config.Name] = provider
		r.names = append(r.names, config.Name)
	}

	if len(r.providers) == 0 {
		return nil, ErrNoEnabledProviders
	}

	sort.Strings(r.names)

	slog.Info("provider registry built",
		"providers", r.names,
		"count", len(r.names),
	)

	return r, nil
}

// NewRegistryFromProviders wraps already constructed providers.
func NewRegistryFromProviders(list ...providers.Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]providers.Provider, len(list))}
	for _, p := range list {
		name := p.GetName()
		if name == "" {
			return nil, &providers.ConfigError{Field: "name", Message: "provider name is required"}
		}
		if _, dup := r.providers[name]; dup {
			return nil, &providers.ConfigError{Field: "name", Message: fmt.Sprintf("duplicate provider name %q", name)}
		}
		r.providers[name] = p
		r.names = append(r.names, name)
	}
	if len(r.providers) == 0 {
		return nil, ErrNoEnabledProviders
	}
	sort.Strings(r.names)
	return r, nil
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (providers.Provider, error) {
	provider, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return provider, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Names returns the sorted provider names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Providers returns a copy of the name to provider map.
func (r *Registry) Providers() map[string]providers.Provider {
	out := make(map[string]providers.Provider, len(r.providers))
	for name, provider := range r.providers {
		out[name] = provider
	}
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	return len(r.providers)
}

// Close closes all providers.
func (r *Registry) Close() error {
	var errs []error
	for name, provider := range r.providers {
		if err := provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// HealthDetails returns each provider's health as derived from its recent
// invocations, keyed by name.
func (r *Registry) HealthDetails() map[string]providers.ProviderHealth {
	out := make(map[string]providers.ProviderHealth, len(r.providers))
	for name, provider := range r.providers {
		out[name] = provider.GetHealth()
	}
	return out
}
