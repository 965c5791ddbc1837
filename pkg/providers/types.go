package providers

import (
	"fmt"
	"time"
)

// Protocol identifies the wire protocol spoken by a backend.
type Protocol string

const (
	// ProtocolChat is the OpenAI-style chat-completion API
	// (POST {base}/chat/completions, liveness GET {base}/models).
	ProtocolChat Protocol = "chat"

	// ProtocolGenerate is the Ollama-style generate API
	// (POST {base}/api/generate, liveness GET {base}/api/tags).
	ProtocolGenerate Protocol = "generate"
)

// ParseProtocol converts a configuration string into a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(s) {
	case ProtocolChat, ProtocolGenerate:
		return Protocol(s), nil
	default:
		return "", fmt.Errorf("unknown protocol %q (expected %q or %q)", s, ProtocolChat, ProtocolGenerate)
	}
}

// Message is a single chat message sent to chat-completion backends.
type Message struct {
	// Role is one of system, user or assistant
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`
}

// ProviderHealth tracks the health status of a provider.
type ProviderHealth struct {
	// IsHealthy indicates whether the provider is currently healthy
	IsHealthy bool

	// LastCheck is the timestamp of the last probe or invocation
	LastCheck time.Time

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failures
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful request
	LastSuccessfulRequest time.Time

	// TotalRequests is the total number of invocations sent to this provider
	TotalRequests int64

	// FailedRequests is the total number of failed invocations
	FailedRequests int64
}

// ProviderConfig contains configuration for a single provider instance.
// This is the adapter-facing subset of config.ProviderConfig.
type ProviderConfig struct {
	// Name is the registry key (e.g., "ollama", "openai")
	Name string

	// Protocol selects the adapter variant
	Protocol Protocol

	// BaseURL is the API endpoint base URL
	BaseURL string

	// Model is the model identifier sent with every invocation
	Model string

	// APIKey is the bearer token (chat protocol only)
	APIKey string

	// Timeout bounds a single invocation
	Timeout time.Duration

	// RetryCount is the number of retries after the first attempt
	RetryCount int

	// Enabled reports whether the provider participates in the registry
	Enabled bool

	// Temperature is the sampling temperature sent to the model
	Temperature float64

	// MaxTokens caps the completion length (chat protocol only)
	MaxTokens int

	// TopP is the nucleus sampling value (generate protocol only, 0 = unset)
	TopP float64

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
