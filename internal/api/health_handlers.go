package api

import (
	"net/http"
	"time"

	"github.com/onnwee/collabmatch/internal/health"
)

// HealthHandlers serves liveness and readiness checks.
type HealthHandlers struct {
	checks  map[string]health.Checker
	timeout time.Duration
	now     func() time.Time
}

// NewHealthHandlers creates handlers running checks on readiness. Nil
// checkers are ignored so optional backends can be passed unconditionally.
func NewHealthHandlers(checks map[string]health.Checker, timeout time.Duration) *HealthHandlers {
	active := make(map[string]health.Checker, len(checks))
	for name, c := range checks {
		if c != nil {
			active[name] = c
		}
	}
	return &HealthHandlers{checks: active, timeout: timeout, now: time.Now}
}

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse is the readiness body.
type ReadyResponse struct {
	Status    string          `json:"status"`
	Checks    []health.Result `json:"checks"`
	Timestamp string          `json:"timestamp"`
}

// Health handles GET /health. It reports only that the process serves requests.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready, returning 503 when any dependency check fails.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	rep := health.Run(r.Context(), h.checks, h.timeout)

	status, code := "ready", http.StatusOK
	if !rep.Healthy {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, ReadyResponse{
		Status:    status,
		Checks:    rep.Checks,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}
