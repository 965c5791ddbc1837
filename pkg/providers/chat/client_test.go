package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	testhelpers "iqtoolkit/analyzer/internal/providers"
	"iqtoolkit/analyzer/pkg/prompt"
	"iqtoolkit/analyzer/pkg/providers"
)

func TestChatProvider_Invoke(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testhelpers.MockChatResponse("1. PERFORMANCE ISSUES\n- Full scan", "gpt-4o-mini"),
	})

	config := testhelpers.TestConfigWithURL("openai", providers.ProtocolChat, mock.URL()+"/v1")
	config.Model = "gpt-4o-mini"
	config.Temperature = 0.2
	config.MaxTokens = 1500
	provider, err := NewProvider(config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer provider.Close()

	text, err := provider.Invoke(context.Background(), "analyze this")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if text != "1. PERFORMANCE ISSUES\n- Full scan" {
		t.Errorf("unexpected text %q", text)
	}

	if mock.GetRequestCount() != 1 {
		t.Fatalf("expected exactly 1 request, got %d", mock.GetRequestCount())
	}

	req, _ := mock.LastRequest()
	if req.Method != http.MethodPost {
		t.Errorf("expected POST, got %s", req.Method)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("unexpected Authorization header %q", got)
	}

	var body Request
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if body.Model != "gpt-4o-mini" || body.Temperature != 0.2 || body.MaxTokens != 1500 {
		t.Errorf("unexpected request body %+v", body)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(body.Messages))
	}
	if body.Messages[0].Role != providers.RoleSystem || body.Messages[0].Content != prompt.SystemPrompt {
		t.Errorf("unexpected system message %+v", body.Messages[0])
	}
	if body.Messages[1].Role != providers.RoleUser || body.Messages[1].Content != "analyze this" {
		t.Errorf("unexpected user message %+v", body.Messages[1])
	}
}

func TestChatProvider_NoChoices(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/chat/completions", testhelpers.MockResponse{
		StatusCode: http.StatusOK,
		Body:       map[string]interface{}{"id": "x", "choices": []interface{}{}},
	})

	provider, err := NewProvider(testhelpers.TestConfigWithURL("openai", providers.ProtocolChat, mock.URL()))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	_, err = provider.Invoke(context.Background(), "p")
	testhelpers.AssertKind(t, err, providers.KindProtocol)
	if providers.IsRetryable(err) {
		t.Error("missing choices should not be retryable")
	}
}

func TestChatProvider_AuthError(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/chat/completions", testhelpers.MockAuthError())

	provider, err := NewProvider(testhelpers.TestConfigWithURL("openai", providers.ProtocolChat, mock.URL()))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	_, err = provider.Invoke(context.Background(), "p")
	testhelpers.AssertKind(t, err, providers.KindAuth)
	if mock.GetRequestCount() != 1 {
		t.Errorf("expected 1 request, got %d", mock.GetRequestCount())
	}
}

func TestChatProvider_NoKeyOmitsAuthHeader(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/models", testhelpers.MockResponse{Body: testhelpers.MockModelsResponse("local")})

	config := testhelpers.TestConfigWithURL("local", providers.ProtocolChat, mock.URL())
	config.APIKey = ""
	provider, err := NewProvider(config)
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	if err := provider.Probe(context.Background()); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	req, _ := mock.LastRequest()
	if req.Header.Get("Authorization") != "" {
		t.Errorf("expected no Authorization header, got %q", req.Header.Get("Authorization"))
	}
}

func TestChatProvider_Probe(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()

	mock.SetResponse("/models", testhelpers.MockResponse{Body: testhelpers.MockModelsResponse("gpt-4o-mini")})

	provider, err := NewProvider(testhelpers.TestConfigWithURL("openai", providers.ProtocolChat, mock.URL()))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	if err := provider.Probe(context.Background()); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	req, _ := mock.LastRequest()
	if req.Method != http.MethodGet || req.Path != "/models" {
		t.Errorf("unexpected probe request %s %s", req.Method, req.Path)
	}
	if req.Header.Get("Authorization") != "Bearer test-key" {
		t.Errorf("probe should send bearer auth")
	}
}

func TestNewProvider_RejectsWrongProtocol(t *testing.T) {
	config := testhelpers.TestConfig("ollama", providers.ProtocolGenerate)
	if _, err := NewProvider(config); err == nil {
		t.Fatal("expected error for generate protocol")
	}
}
