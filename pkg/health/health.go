// Package health provides liveness and readiness probe endpoints. Readiness
// checks run on demand when the endpoint is hit; the manual ready flag gates
// traffic during startup and graceful shutdown.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. It returns nil when healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health tracks the service's readiness state and its registered checks.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks []check
}

// New creates a Health service in the not-ready state; call SetReady(true)
// once initialization completes.
func New() *Health {
	return &Health{}
}

// AddReadinessCheck registers a dependency probe evaluated on every /readyz hit.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown to drain traffic before the listener stops.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LiveEndpoint always reports the process as alive.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReadyEndpoint reports 200 when the manual gate is open and every readiness
// check passes, 503 otherwise with per-check detail.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}

	h.mu.RLock()
	checks := h.checks
	h.mu.RUnlock()

	results := make(map[string]string, len(checks))
	healthy := true
	for _, c := range checks {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		err := c.fn(ctx)
		cancel()

		if err != nil {
			healthy = false
			results[c.name] = err.Error()
		} else {
			results[c.name] = "ok"
		}
	}

	code := http.StatusOK
	status := "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		status = "degraded"
	}
	writeStatus(w, code, map[string]any{"status": status, "checks": results})
}

func writeStatus(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
