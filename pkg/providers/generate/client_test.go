package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	testhelpers "iqtoolkit/analyzer/internal/providers"
	"iqtoolkit/analyzer/pkg/providers"
)

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	config := testhelpers.TestConfigWithURL("ollama", providers.ProtocolGenerate, baseURL)
	config.Model = "llama2:13b"
	config.TopP = 0.9
	p, err := NewProvider(config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestGenerateProvider_Invoke(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/api/generate", testhelpers.MockResponse{
		Body: testhelpers.MockGenerateResponse("analysis text", "llama2:13b"),
	})

	p := newTestProvider(t, mock.URL())
	text, err := p.Invoke(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if text != "analysis text" {
		t.Errorf("unexpected text %q", text)
	}

	req, _ := mock.LastRequest()
	if req.Header.Get("Authorization") != "" {
		t.Errorf("generate requests must not carry auth, got %q", req.Header.Get("Authorization"))
	}

	var body map[string]interface{}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if body["model"] != "llama2:13b" || body["prompt"] != "the prompt" {
		t.Errorf("unexpected body %v", body)
	}
	if stream, ok := body["stream"].(bool); !ok || stream {
		t.Errorf("expected stream=false, got %v", body["stream"])
	}
	options, ok := body["options"].(map[string]interface{})
	if !ok {
		t.Fatalf("options missing: %v", body)
	}
	if options["temperature"] != 0.1 || options["top_p"] != 0.9 {
		t.Errorf("unexpected options %v", options)
	}
}

func TestGenerateProvider_MissingResponseField(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/api/generate", testhelpers.MockResponse{
		Body: map[string]interface{}{"model": "llama2:13b", "done": true},
	})

	p := newTestProvider(t, mock.URL())
	_, err := p.Invoke(context.Background(), "p")
	testhelpers.AssertKind(t, err, providers.KindProtocol)
}

func TestGenerateProvider_EmptyResponseIsNotAnError(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/api/generate", testhelpers.MockResponse{
		Body: testhelpers.MockGenerateResponse("", "llama2:13b"),
	})

	p := newTestProvider(t, mock.URL())
	text, err := p.Invoke(context.Background(), "p")
	if err != nil || text != "" {
		t.Errorf("expected empty text without error, got %q, %v", text, err)
	}
}

func TestGenerateProvider_ServerErrorIsTransient(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/api/generate", testhelpers.MockServerError())

	p := newTestProvider(t, mock.URL())
	_, err := p.Invoke(context.Background(), "p")
	testhelpers.AssertKind(t, err, providers.KindProtocol)
	if !providers.IsRetryable(err) {
		t.Error("5xx should be retryable")
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("adapter must make exactly one call, got %d", mock.GetRequestCount())
	}
}

func TestGenerateProvider_Timeout(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/api/generate", testhelpers.MockSlowResponse(time.Second, testhelpers.MockGenerateResponse("late", "m")))

	config := testhelpers.TestConfigWithURL("ollama", providers.ProtocolGenerate, mock.URL())
	config.Timeout = 50 * time.Millisecond
	p, err := NewProvider(config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	_, err = p.Invoke(context.Background(), "p")
	testhelpers.AssertKind(t, err, providers.KindTimeout)
}

func TestGenerateProvider_Unreachable(t *testing.T) {
	p := newTestProvider(t, testhelpers.UnreachableURL(t))
	_, err := p.Invoke(context.Background(), "p")
	testhelpers.AssertKind(t, err, providers.KindUnavailable)
}

func TestGenerateProvider_Probe(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	p := newTestProvider(t, mock.URL())

	if err := p.Probe(context.Background()); err == nil {
		t.Error("expected probe failure when tags endpoint is missing")
	}

	mock.SetResponse("/api/tags", testhelpers.MockResponse{Body: testhelpers.MockTagsResponse("llama2:13b")})
	if err := p.Probe(context.Background()); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	req, _ := mock.LastRequest()
	if req.Method != http.MethodGet || req.Path != "/api/tags" {
		t.Errorf("unexpected probe request %s %s", req.Method, req.Path)
	}
}
