package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// Overall statuses.
const (
	StatusOK          = "ok"
	StatusReady       = "ready"
	StatusUnavailable = "unavailable"
)

// HealthStatus is the body of the liveness and readiness endpoints.
type HealthStatus struct {
	// Status is "ok" (liveness), "ready" or "unavailable"
	Status string `json:"status"`

	// Providers holds per-provider probe results (readiness only)
	Providers map[string]ProbeResult `json:"providers,omitempty"`

	// Timestamp is when the check was performed
	Timestamp time.Time `json:"timestamp"`
}

// ProvidersStatus is the body of the provider health endpoint.
type ProvidersStatus struct {
	Providers map[string]bool        `json:"providers"`
	Details   map[string]ProbeResult `json:"details"`
	Timestamp time.Time              `json:"timestamp"`
}

// VersionInfo contains build and version information.
type VersionInfo struct {
	// Version is the semantic version (e.g., "1.0.0")
	Version string `json:"version"`

	// Commit is the git commit hash
	Commit string `json:"commit"`

	// BuildTime is when the binary was built
	BuildTime string `json:"build_time"`

	// GoVersion is the Go version used to build
	GoVersion string `json:"go_version"`
}

// CheckLiveness reports that the process is running. It never probes
// providers.
func (a *Aggregator) CheckLiveness(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
	}
}

// CheckReadiness probes all providers. The service is ready when at least
// one provider is alive, or when none are registered.
func (a *Aggregator) CheckReadiness(ctx context.Context) HealthStatus {
	details := a.Details(ctx)

	status := StatusReady
	if len(details) > 0 {
		status = StatusUnavailable
		for _, result := range details {
			if result.Healthy {
				status = StatusReady
				break
			}
		}
	}

	return HealthStatus{
		Status:    status,
		Providers: details,
		Timestamp: time.Now(),
	}
}

// LivenessHandler returns the handler for the liveness endpoint.
//
// Example response:
//
//	{
//	    "status": "ok",
//	    "timestamp": "2025-11-20T10:30:00Z"
//	}
func (a *Aggregator) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, a.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler returns the handler for the readiness endpoint.
//
// Returns:
//   - 200 OK: at least one provider answered its probe
//   - 503 Service Unavailable: every provider failed its probe
func (a *Aggregator) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := a.CheckReadiness(r.Context())

		code := http.StatusOK
		if status.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
	}
}

// ProvidersHandler returns the handler that reports every provider's
// liveness. It always answers 200 with a complete map.
//
// Example response:
//
//	{
//	    "providers": {"ollama": true, "openai": false},
//	    "details": {
//	        "ollama": {"healthy": true, "latency_ms": 3.2},
//	        "openai": {"healthy": false, "latency_ms": 5000, "error": "health probe timeout"}
//	    },
//	    "timestamp": "2025-11-20T10:30:00Z"
//	}
func (a *Aggregator) ProvidersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details := a.Details(r.Context())

		providers := make(map[string]bool, len(details))
		for name, result := range details {
			providers[name] = result.Healthy
		}

		writeJSON(w, r, http.StatusOK, ProvidersStatus{
			Providers: providers,
			Details:   details,
			Timestamp: time.Now(),
		})
	}
}

// VersionHandler returns the handler for the version endpoint.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, info)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(body)
	}
}
