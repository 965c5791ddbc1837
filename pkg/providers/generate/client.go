package generate

import (
	"context"
	"log/slog"
	"net/http"

	"iqtoolkit/analyzer/pkg/providers"
)

const (
	generatePath = "/api/generate"
	tagsPath     = "/api/tags"
)

// Request is the generate API request body.
type Request struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

// Options carries sampling parameters.
type Options struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
}

// Response is the non-streaming generate answer. Response is a pointer so a
// missing field can be told apart from an empty completion.
type Response struct {
	Model    string  `json:"model"`
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// Provider is the generate-protocol adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates a generate provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Protocol == "" {
		config.Protocol = providers.ProtocolGenerate
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Protocol != providers.ProtocolGenerate {
		return nil, &providers.ConfigError{Field: "protocol", Message: "generate adapter requires protocol " + string(providers.ProtocolGenerate)}
	}

	config = config.WithDefaults()

	slog.Info("generate provider initialized",
		"provider", config.Name,
		"base_url", providers.RedactURL(config.BaseURL),
		"model", config.Model,
	)

	return &Provider{HTTPProvider: providers.NewHTTPProvider(config)}, nil
}

// Invoke sends a non-streaming generate request and returns its response
// field.
func (p *Provider) Invoke(ctx context.Context, prompt string) (string, error) {
	cfg := p.GetConfig()

	req := &Request{
		Model:  cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: Options{
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
		},
	}

	var resp Response
	if err := p.DoJSON(ctx, http.MethodPost, generatePath, req, &resp, nil); err != nil {
		return "", err
	}

	if resp.Response == nil {
		return "", providers.NewProtocolError(cfg.Name, 0, "response field missing", false, nil)
	}
	return *resp.Response, nil
}

// Probe lists local model tags.
func (p *Provider) Probe(ctx context.Context) error {
	return p.ProbeGET(ctx, tagsPath, nil)
}
