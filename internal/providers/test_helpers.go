package providers

import (
	"net"
	"testing"
	"time"

	"iqtoolkit/analyzer/pkg/providers"
)

// TestConfig returns a test provider configuration.
func TestConfig(name string, protocol providers.Protocol) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Protocol:            protocol,
		BaseURL:             "http://localhost:8080",
		Model:               "test-model",
		APIKey:              "test-key",
		Timeout:             5 * time.Second,
		RetryCount:          2,
		Enabled:             true,
		Temperature:         0.1,
		MaxTokens:           256,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestConfigWithURL returns a test config with a specific base URL.
func TestConfigWithURL(name string, protocol providers.Protocol, baseURL string) providers.ProviderConfig {
	config := TestConfig(name, protocol)
	config.BaseURL = baseURL
	return config
}

// UnreachableURL returns a base URL on a local port with no listener.
func UnreachableURL(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return "http://" + addr
}

// AssertKind fails the test unless err is a ProviderError of kind.
func AssertKind(t *testing.T, err error, kind providers.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	got, ok := providers.KindOf(err)
	if !ok {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if got != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, got, err)
	}
}
