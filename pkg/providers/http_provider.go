package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// maxResponseBytes bounds how much of a backend response is read.
const maxResponseBytes = 16 << 20

// HTTPProvider is the base implementation for HTTP-based provider adapters.
// It provides connection pooling, per-invocation timeouts, failure
// classification and health bookkeeping.
//
// Every call to Do performs exactly one HTTP round trip. Retrying is left to
// the routing layer so that attempts are counted and logged in one place.
//
// Concrete adapters (chat, generate) embed this struct and implement Invoke
// and Probe on top of DoJSON.
type HTTPProvider struct {
	// config contains the provider configuration
	config ProviderConfig

	// client is the HTTP client with connection pooling
	client *http.Client

	// health tracks the provider's health status
	health ProviderHealth

	// healthMu protects concurrent access to health status
	healthMu sync.RWMutex
}

// NewHTTPProvider creates a new base HTTP provider with connection pooling.
// The client has no global timeout; Do bounds each call with config.Timeout
// through the request context so caller cancellation and provider timeouts
// can be told apart.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{Transport: transport},
		health: ProviderHealth{
			IsHealthy: true, // Start optimistic
			LastCheck: time.Now(),
		},
	}
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.config.Name
}

// GetProtocol returns the provider's wire protocol.
func (p *HTTPProvider) GetProtocol() Protocol {
	return p.config.Protocol
}

// GetConfig returns the provider's configuration.
func (p *HTTPProvider) GetConfig() ProviderConfig {
	return p.config
}

// Endpoint joins the configured base URL and path.
func (p *HTTPProvider) Endpoint(path string) string {
	return strings.TrimRight(p.config.BaseURL, "/") + path
}

// Do performs a single HTTP request and returns the response body of a 2xx
// answer. Any other outcome is returned as a classified *ProviderError, or as
// an error wrapping ctx.Err() when the caller's context ended first.
func (p *HTTPProvider) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, error) {
	callCtx := ctx
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(callCtx, method, p.Endpoint(path), bodyReader)
	if err != nil {
		return nil, NewProtocolError(p.config.Name, 0, "failed to create request", false, err)
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	slog.Debug("sending request to provider",
		"provider", p.config.Name,
		"method", method,
		"url", RedactURL(p.Endpoint(path)),
	)

	resp, err := p.client.Do(req)
	if err != nil {
		classified := p.classifyTransportError(ctx, err)
		p.recordRequest(false)
		p.updateHealth(false, classified)
		return nil, classified
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		classified := p.classifyStatus(resp.StatusCode, respBody)
		p.recordRequest(false)
		p.updateHealth(false, classified)
		return nil, classified
	}

	if readErr != nil {
		classified := p.classifyTransportError(ctx, readErr)
		p.recordRequest(false)
		p.updateHealth(false, classified)
		return nil, classified
	}

	p.recordRequest(true)
	p.updateHealth(true, nil)
	return respBody, nil
}

// DoJSON marshals reqBody, performs the request and decodes a 2xx answer
// into respBody. Encoding failures and undecodable answers are
// non-transient protocol errors.
func (p *HTTPProvider) DoJSON(ctx context.Context, method, path string, reqBody, respBody interface{}, headers map[string]string) error {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return NewProtocolError(p.config.Name, 0, "failed to marshal request", false, err)
		}
	}

	responseBytes, err := p.Do(ctx, method, path, bodyBytes, headers)
	if err != nil {
		return err
	}

	if respBody == nil {
		return nil
	}
	if len(bytes.TrimSpace(responseBytes)) == 0 {
		return NewProtocolError(p.config.Name, 0, "empty response body", false, nil)
	}
	if err := json.Unmarshal(responseBytes, respBody); err != nil {
		return NewProtocolError(p.config.Name, 0, "failed to decode response: "+err.Error(), false, err)
	}
	return nil
}

// ProbeGET performs a liveness GET against path and reports any non-2xx
// answer or transport failure as an error.
func (p *HTTPProvider) ProbeGET(ctx context.Context, path string, headers map[string]string) error {
	_, err := p.Do(ctx, http.MethodGet, path, nil, headers)
	return err
}

// classifyTransportError maps a failed round trip to an error kind.
// Cancellation of the caller's context is reported as-is (wrapped) so the
// retry layer stops instead of counting it as a provider failure.
func (p *HTTPProvider) classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("provider %q request aborted: %w", p.config.Name, ctxErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(p.config.Name, fmt.Errorf("no response within %s", p.config.Timeout))
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(p.config.Name, fmt.Errorf("no response within %s", p.config.Timeout))
	}

	// url.Error embeds the full URL; keep only the inner cause.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return NewUnavailableError(p.config.Name, err)
}

// classifyStatus maps a non-2xx status to an error kind.
func (p *HTTPProvider) classifyStatus(status int, body []byte) *ProviderError {
	message := errorMessage(body)
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewAuthError(p.config.Name, status, message)
	case status >= 500, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return NewProtocolError(p.config.Name, status, message, true, nil)
	default:
		return NewProtocolError(p.config.Name, status, message, false, nil)
	}
}

// errorMessage extracts a human-readable message from a backend error body.
// It understands {"error":{"message":...}} and {"error":"..."} shapes and
// falls back to the raw body.
func errorMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(trimmed, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(trimmed, &flat) == nil && flat.Error != "" {
		return flat.Error
	}

	return string(trimmed)
}

// Close closes idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	slog.Debug("provider closed", "provider", p.config.Name)
	return nil
}

// RedactURL renders raw with any userinfo password masked. Unparseable input
// is returned without its query string.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	return u.Redacted()
}
