// Package ops exposes the guardian worker's operational HTTP surface:
// a liveness endpoint and a readiness endpoint backed by dependency probes.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// probeTimeout is the maximum time allowed for all readiness probes to
// complete. A probe that exceeds it is reported unhealthy.
const probeTimeout = 2 * time.Second

// HealthProbe is a readiness check against one critical dependency.
type HealthProbe interface {
	// Name identifies the probe in the readiness response ("database",
	// "reasoning_engine").
	Name() string

	// Check reports an error when the dependency is unhealthy. It must
	// respect the context deadline.
	Check(ctx context.Context) error
}

// componentStatus is the per-dependency entry in the readiness response.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// Handler serves the worker's health endpoints.
type Handler struct {
	probes []HealthProbe
	logger *slog.Logger
}

// NewHandler creates a health handler with the given readiness probes.
func NewHandler(probes []HealthProbe, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{probes: probes, logger: logger}
}

// Router builds the ops router: GET /healthz (liveness) and GET /readyz
// (readiness with dependency probes).
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", h.handleLiveness)
	r.Get("/readyz", h.handleReadiness)
	return r
}

// handleLiveness always reports healthy while the process is serving.
func (h *Handler) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

// handleReadiness runs all probes concurrently under a shared deadline and
// reports 503 when any dependency fails or times out.
func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	if len(h.probes) == 0 {
		writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	type probeResult struct {
		name string
		err  error
	}

	var (
		mu      sync.Mutex
		results = make(map[string]probeResult, len(h.probes))
		wg      sync.WaitGroup
	)

	for _, probe := range h.probes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()

			var err error
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						err = fmt.Errorf("probe panicked: %v", rec)
					}
				}()
				err = p.Check(ctx)
			}()

			mu.Lock()
			results[p.Name()] = probeResult{name: p.Name(), err: err}
			mu.Unlock()
		}(probe)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Probes that missed the deadline are reported as timed out below.
	}

	mu.Lock()
	collected := make(map[string]probeResult, len(results))
	for k, v := range results {
		collected[k] = v
	}
	mu.Unlock()

	components := make(map[string]componentStatus, len(h.probes))
	allHealthy := true

	for _, probe := range h.probes {
		name := probe.Name()
		result, ok := collected[name]
		switch {
		case !ok:
			allHealthy = false
			components[name] = componentStatus{Status: "unhealthy", Message: "health check timed out"}
		case result.err != nil:
			allHealthy = false
			components[name] = componentStatus{Status: "unhealthy", Message: result.err.Error()}
		default:
			components[name] = componentStatus{Status: "healthy"}
		}
	}

	resp := healthResponse{Components: components}
	if allHealthy {
		resp.Status = "healthy"
		writeJSON(w, http.StatusOK, resp)
	} else {
		resp.Status = "unhealthy"
		writeJSON(w, http.StatusServiceUnavailable, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DatabaseProbe checks connectivity to the persistence store.
type DatabaseProbe struct {
	Pinger interface {
		Ping(ctx context.Context) error
	}
}

// Name implements HealthProbe.
func (p DatabaseProbe) Name() string { return "database" }

// Check implements HealthProbe.
func (p DatabaseProbe) Check(ctx context.Context) error {
	return p.Pinger.Ping(ctx)
}
