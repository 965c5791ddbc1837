package providers

import "context"

// Provider is the interface every LLM backend adapter implements.
// It turns a prompt into free text with exactly one outbound call per
// invocation; retries and fallback are the caller's concern.
//
// All methods accept a context.Context for cancellation and timeout control.
// Implementations must respect context cancellation and return immediately when
// the context is cancelled.
//
// Example usage:
//
//	provider, err := providerfactory.NewProvider(config)
//	if err != nil {
//	    return err
//	}
//
//	text, err := provider.Invoke(ctx, prompt.Build(query, ""))
//	if err != nil {
//	    kind, _ := providers.KindOf(err)
//	    return fmt.Errorf("%s: %w", kind, err)
//	}
type Provider interface {
	// Invoke sends prompt to the backend and returns the raw completion text.
	// Failures are *ProviderError values classified by ErrorKind, or an error
	// wrapping ctx.Err() when the caller cancelled.
	Invoke(ctx context.Context, prompt string) (string, error)

	// Probe performs a lightweight liveness check (models list or tags
	// endpoint). A nil error means the backend is reachable and answering.
	Probe(ctx context.Context) error

	// GetName returns the provider's registry name.
	GetName() string

	// GetProtocol returns the wire protocol the adapter speaks.
	GetProtocol() Protocol

	// GetConfig returns the provider's configuration.
	GetConfig() ProviderConfig

	// GetHealth returns the health derived from recent invocations and
	// probes.
	GetHealth() ProviderHealth

	// Close releases idle connections held by the adapter.
	Close() error
}
