package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultProbeTimeout bounds each liveness probe.
const DefaultProbeTimeout = 5 * time.Second

// ProbeFunc checks one provider. It returns nil if the provider is alive.
type ProbeFunc func(ctx context.Context) error

// ProbeResult is the outcome of one probe.
type ProbeResult struct {
	// Healthy is true when the probe returned nil within the timeout
	Healthy bool `json:"healthy"`

	// LatencyMS is how long the probe took
	LatencyMS float64 `json:"latency_ms"`

	// Error describes the failure, if any
	Error string `json:"error,omitempty"`

	// Activity is what recent traffic says about the provider, when an
	// activity source is installed
	Activity *Activity `json:"activity,omitempty"`
}

// Activity is the provider state derived from real invocations rather than
// probes.
type Activity struct {
	// Degraded is set after repeated consecutive failures
	Degraded bool `json:"degraded"`

	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	TotalRequests       int64      `json:"total_requests"`
	FailedRequests      int64      `json:"failed_requests"`
}

// ActivityFunc reports per-provider activity keyed by provider name.
type ActivityFunc func() map[string]Activity

// ErrProbeTimeout is recorded when a probe does not return in time.
var ErrProbeTimeout = errors.New("health probe timeout")

// Aggregator fans liveness probes out to every registered provider.
//
// Each probe runs in its own goroutine under its own timeout, so a full
// check takes about as long as the slowest probe, never the sum. Probe
// errors, timeouts and panics are recorded as unhealthy; they are never
// returned to the caller.
type Aggregator struct {
	mu     sync.RWMutex
	probes map[string]ProbeFunc

	probeTimeout time.Duration
	logger       *slog.Logger

	// observer is told about each probe outcome
	observer func(name string, healthy bool)

	activity ActivityFunc
}

// New creates an aggregator. A zero timeout means DefaultProbeTimeout.
func New(probeTimeout time.Duration) *Aggregator {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	return &Aggregator{
		probes:       make(map[string]ProbeFunc),
		probeTimeout: probeTimeout,
		logger:       slog.Default().With("component", "health"),
	}
}

// SetObserver installs a callback invoked after each probe, such as the
// provider_up gauge.
func (a *Aggregator) SetObserver(fn func(name string, healthy bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.observer = fn
}

// SetActivity installs the source merged into Details.
func (a *Aggregator) SetActivity(fn ActivityFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.activity = fn
}

// Register adds or replaces the probe for name.
func (a *Aggregator) Register(name string, probe ProbeFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.probes[name] = probe
}

// Unregister removes the probe for name.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.probes, name)
}

// Names returns the sorted registered names.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.probes))
	for name := range a.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered probes.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.probes)
}

// ProbeTimeout returns the per-probe timeout.
func (a *Aggregator) ProbeTimeout() time.Duration {
	return a.probeTimeout
}

// CheckProviders probes every provider concurrently and returns a complete
// name to liveness map.
func (a *Aggregator) CheckProviders(ctx context.Context) map[string]bool {
	details := a.Details(ctx)

	out := make(map[string]bool, len(details))
	for name, result := range details {
		out[name] = result.Healthy
	}
	return out
}

// Details probes every provider concurrently and returns per-provider
// results.
func (a *Aggregator) Details(ctx context.Context) map[string]ProbeResult {
	a.mu.RLock()
	probes := make(map[string]ProbeFunc, len(a.probes))
	for name, probe := range a.probes {
		probes[name] = probe
	}
	observer := a.observer
	activityFn := a.activity
	a.mu.RUnlock()

	results := make(map[string]ProbeResult, len(probes))
	var resultMu sync.Mutex
	var wg sync.WaitGroup

	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe ProbeFunc) {
			defer wg.Done()

			result := a.runProbe(ctx, name, probe)

			resultMu.Lock()
			results[name] = result
			resultMu.Unlock()

			if observer != nil {
				observer(name, result.Healthy)
			}
		}(name, probe)
	}

	wg.Wait()

	if activityFn != nil {
		for name, act := range activityFn() {
			result, ok := results[name]
			if !ok {
				continue
			}
			result.Activity = &act
			results[name] = result
		}
	}

	return results
}

// runProbe executes a single probe with the timeout. The probe runs in its
// own goroutine so one that ignores its context still cannot stall the
// aggregate.
func (a *Aggregator) runProbe(ctx context.Context, name string, probe ProbeFunc) ProbeResult {
	probeCtx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	start := time.Now()

	errChan := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errChan <- fmt.Errorf("probe panicked: %v", r)
			}
		}()
		errChan <- probe(probeCtx)
	}()

	var err error
	select {
	case err = <-errChan:
	case <-probeCtx.Done():
		err = ErrProbeTimeout
	}

	result := ProbeResult{
		Healthy:   err == nil,
		LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		result.Error = err.Error()
		a.logger.Debug("provider probe failed", "provider", name, "error", err)
	}
	return result
}
