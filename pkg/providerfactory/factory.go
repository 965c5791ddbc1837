package providerfactory

import (
	"fmt"
	"log/slog"

	"iqtoolkit/analyzer/pkg/providers"
	"iqtoolkit/analyzer/pkg/providers/chat"
	"iqtoolkit/analyzer/pkg/providers/generate"
)

// NewProvider creates a new provider instance based on the configuration.
//
// Supported protocols:
//   - "chat": OpenAI-style chat completions
//   - "generate": Ollama-style generate API
//
// If config.Protocol is empty it is inferred from the provider name:
//   - "ollama" -> generate
//   - everything else -> chat
//
// Example:
//
//	config := providers.ProviderConfig{
//	    Name:     "ollama",
//	    Protocol: providers.ProtocolGenerate,
//	    BaseURL:  "http://localhost:11434",
//	    Model:    "llama2:13b",
//	}
//	provider, err := NewProvider(config)
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
func NewProvider(config providers.ProviderConfig) (providers.Provider, error) {
	if config.Protocol == "" {
		config.Protocol = InferProtocol(config.Name)
	}

	slog.Debug("creating provider",
		"name", config.Name,
		"protocol", config.Protocol,
		"base_url", providers.RedactURL(config.BaseURL),
	)

	var provider providers.Provider
	var err error

	switch config.Protocol {
	case providers.ProtocolChat:
		provider, err = chat.NewProvider(config)

	case providers.ProtocolGenerate:
		provider, err = generate.NewProvider(config)

	default:
		return nil, &providers.ConfigError{
			Field:   "protocol",
			Message: fmt.Sprintf("unsupported protocol %q for provider %q (supported: chat, generate)", config.Protocol, config.Name),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", config.Name, err)
	}

	return provider, nil
}

// InferProtocol infers the wire protocol from the provider name.
func InferProtocol(name string) providers.Protocol {
	switch name {
	case "ollama":
		return providers.ProtocolGenerate
	default:
		return providers.ProtocolChat
	}
}
