package routing

import (
	"context"
	"sync"
	"time"

	"iqtoolkit/analyzer/pkg/providers"
)

// MockProvider is a scripted implementation of providers.Provider for
// testing retry, fallback and health aggregation.
type MockProvider struct {
	name       string
	protocol   providers.Protocol
	retryCount int

	mu         sync.Mutex
	results    []MockResult
	calls      int
	prompts    []string
	delay      time.Duration
	probeErr   error
	probeDelay time.Duration
	probes     int
	health     providers.ProviderHealth
	inFlight   int
	maxFlight  int
}

// MockResult is one scripted Invoke outcome.
type MockResult struct {
	Text string
	Err  error
}

// NewMockProvider creates a new mock provider that answers "mock response".
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:     name,
		protocol: providers.ProtocolChat,
		results:  []MockResult{{Text: "mock response"}},
		health:   providers.ProviderHealth{IsHealthy: true},
	}
}

// SetResults scripts Invoke outcomes in order; the last one repeats.
func (m *MockProvider) SetResults(results ...MockResult) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append([]MockResult(nil), results...)
	return m
}

// FailWith makes every Invoke fail with err.
func (m *MockProvider) FailWith(err error) *MockProvider {
	return m.SetResults(MockResult{Err: err})
}

// SetDelay delays every Invoke, honouring context cancellation.
func (m *MockProvider) SetDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// SetProbe scripts the Probe outcome and latency.
func (m *MockProvider) SetProbe(err error, delay time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeErr = err
	m.probeDelay = delay
	return m
}

// SetRetryCount sets the retry count reported by GetConfig.
func (m *MockProvider) SetRetryCount(n int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryCount = n
	return m
}

// SetHealthy sets the reported health status.
func (m *MockProvider) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health.IsHealthy = healthy
}

// Calls returns the number of Invoke calls.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Probes returns the number of Probe calls.
func (m *MockProvider) Probes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probes
}

// Prompts returns the prompts passed to Invoke.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// MaxConcurrent returns the highest number of simultaneous Invoke calls seen.
func (m *MockProvider) MaxConcurrent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxFlight
}

// Invoke returns the next scripted result.
func (m *MockProvider) Invoke(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	idx := m.calls
	if idx >= len(m.results) {
		idx = len(m.results) - 1
	}
	result := m.results[idx]
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.inFlight++
	if m.inFlight > m.maxFlight {
		m.maxFlight = m.inFlight
	}
	delay := m.delay
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return result.Text, result.Err
}

// Probe returns the scripted probe outcome after the scripted delay.
func (m *MockProvider) Probe(ctx context.Context) error {
	m.mu.Lock()
	m.probes++
	err, delay := m.probeErr, m.probeDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// GetName returns the provider name.
func (m *MockProvider) GetName() string {
	return m.name
}

// GetProtocol returns the provider protocol.
func (m *MockProvider) GetProtocol() providers.Protocol {
	return m.protocol
}

// GetConfig returns a minimal provider configuration.
func (m *MockProvider) GetConfig() providers.ProviderConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return providers.ProviderConfig{Name: m.name, Protocol: m.protocol, RetryCount: m.retryCount, Enabled: true}
}

// GetHealth returns detailed health information.
func (m *MockProvider) GetHealth() providers.ProviderHealth {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.health
}

// Close closes the provider.
func (m *MockProvider) Close() error {
	return nil
}
