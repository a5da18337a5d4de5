// Package health exposes liveness and readiness probes for the API server.
//
// Liveness answers "is the process alive"; it succeeds as long as the server
// can serve HTTP. Readiness additionally runs registered checks (for example
// a database ping) and reports ready only once Start has been called and
// every check passes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// CheckFunc reports whether a dependency is usable. A nil return means
// healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
}

// Health tracks service readiness.
type Health struct {
	ready   atomic.Bool
	timeout time.Duration
	checks  []check
}

// New creates a Health in the not-ready state.
func New() *Health {
	return &Health{timeout: 3 * time.Second}
}

// AddReadinessCheck registers a named readiness check. Register all checks
// before serving traffic; registration is not safe concurrently with probes.
func (h *Health) AddReadinessCheck(name string, fn CheckFunc) {
	h.checks = append(h.checks, check{name: name, fn: fn})
}

// SetReady flips the readiness gate. Call with true once initialization has
// finished and with false when shutdown begins, so load balancers drain the
// instance before connections are closed.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LiveHandler serves the liveness probe.
func (h *Health) LiveHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// ReadyHandler serves the readiness probe. It runs every registered check
// with a per-probe timeout and reports 503 with per-check detail when the
// service is not ready.
func (h *Health) ReadyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		detail := make(map[string]string, len(h.checks)+1)
		status := http.StatusOK

		if !h.ready.Load() {
			detail["service"] = "not ready"
			status = http.StatusServiceUnavailable
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		for _, c := range h.checks {
			if err := c.fn(ctx); err != nil {
				detail[c.name] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				detail[c.name] = "ok"
			}
		}

		writeStatus(w, status, detail)
	})
}

func writeStatus(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
