package routing

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of orchestrator activity.
type Stats struct {
	TotalRequests       int64            `json:"total_requests"`
	AttemptsPerProvider map[string]int64 `json:"attempts_per_provider"`
	FailuresPerProvider map[string]int64 `json:"failures_per_provider"`
	FallbacksUsed       int64            `json:"fallbacks_used"`
	Failures            int64            `json:"failures"`
	Since               time.Time        `json:"since"`
}

// atomicStats tracks orchestrator counters without locks on the hot path.
type atomicStats struct {
	totalRequests atomic.Int64
	fallbacksUsed atomic.Int64
	failures      atomic.Int64

	// attempts and attemptFailures map provider name to *atomic.Int64
	attempts        sync.Map
	attemptFailures sync.Map

	since time.Time
}

func newAtomicStats() *atomicStats {
	return &atomicStats{since: time.Now()}
}

func (s *atomicStats) recordAttempt(provider string, failed bool) {
	counter(&s.attempts, provider).Add(1)
	if failed {
		counter(&s.attemptFailures, provider).Add(1)
	}
}

func counter(m *sync.Map, key string) *atomic.Int64 {
	val, _ := m.LoadOrStore(key, &atomic.Int64{})
	return val.(*atomic.Int64)
}

func (s *atomicStats) snapshot() Stats {
	return Stats{
		TotalRequests:       s.totalRequests.Load(),
		AttemptsPerProvider: collect(&s.attempts),
		FailuresPerProvider: collect(&s.attemptFailures),
		FallbacksUsed:       s.fallbacksUsed.Load(),
		Failures:            s.failures.Load(),
		Since:               s.since,
	}
}

func collect(m *sync.Map) map[string]int64 {
	out := make(map[string]int64)
	m.Range(func(key, value any) bool {
		out[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return out
}
