package chat

import (
	"context"
	"log/slog"
	"net/http"

	"iqtoolkit/analyzer/pkg/prompt"
	"iqtoolkit/analyzer/pkg/providers"
)

const (
	completionsPath = "/chat/completions"
	modelsPath      = "/models"
)

// Provider is the chat-completion adapter.
type Provider struct {
	*providers.HTTPProvider
	systemPrompt string
}

// NewProvider creates a chat-completion provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Protocol == "" {
		config.Protocol = providers.ProtocolChat
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Protocol != providers.ProtocolChat {
		return nil, &providers.ConfigError{Field: "protocol", Message: "chat adapter requires protocol " + string(providers.ProtocolChat)}
	}

	config = config.WithDefaults()

	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		systemPrompt: prompt.SystemPrompt,
	}

	slog.Info("chat provider initialized",
		"provider", config.Name,
		"base_url", providers.RedactURL(config.BaseURL),
		"model", config.Model,
		"auth", config.APIKey != "",
	)

	return p, nil
}

// Invoke sends prompt as the user message and returns the first choice.
func (p *Provider) Invoke(ctx context.Context, text string) (string, error) {
	cfg := p.GetConfig()

	var resp Response
	if err := p.DoJSON(ctx, http.MethodPost, completionsPath, buildRequest(cfg, p.systemPrompt, text), &resp, p.headers()); err != nil {
		return "", err
	}

	return transformResponse(cfg.Name, &resp)
}

// Probe lists models with the configured credentials.
func (p *Provider) Probe(ctx context.Context) error {
	return p.ProbeGET(ctx, modelsPath, p.headers())
}

// headers returns the bearer auth header when a key is configured.
func (p *Provider) headers() map[string]string {
	key := p.GetConfig().APIKey
	if key == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + key}
}
