// Package health provides HTTP liveness and readiness handlers for the
// zobot server.
//
//   - /healthz — liveness probe; always returns 200 OK.
//   - /readyz  — readiness probe; returns 200 only while at least one
//     completion provider is routable (the router is not fully open).
//
// The readiness response embeds the router's per-provider health report so
// operators can see which backend is degraded without a separate call.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/abhiramzobot/zobot-sub002/internal/router"
)

// probeTimeout bounds the provider health fan-out on each /readyz request.
const probeTimeout = 6 * time.Second

// response is the JSON body for both endpoints.
type response struct {
	Status    string                           `json:"status"`
	Providers map[string]router.ProviderHealth `json:"providers,omitempty"`
}

// Handler serves the /healthz and /readyz endpoints over one router.
type Handler struct {
	router *router.Router
}

// New creates a [Handler] backed by r.
func New(r *router.Router) *Handler {
	return &Handler{router: r}
}

// Healthz is the liveness probe. A running process that can serve HTTP is
// considered alive, regardless of provider state.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz is the readiness probe. It reports 503 while every provider in
// the failover chain has an open breaker — at that point the service can
// only produce degraded replies and should be rotated out of traffic.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	res := response{
		Status:    "ok",
		Providers: h.router.HealthCheck(ctx),
	}
	status := http.StatusOK
	if h.router.IsFullyOpen() {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON encodes v as JSON with the given status code. On encoding
// failure it falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
