package httpx

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/sportwire/ingest-admin/internal/core"
)

// HealthHandlers provides liveness and readiness endpoints.
type HealthHandlers struct {
	DB    *sql.DB
	Cache core.CacheRepository
}

// Live handles GET /healthz: process is up.
func (h *HealthHandlers) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready handles GET /readyz: dependencies are reachable.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.DB != nil {
		if err := h.DB.PingContext(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if h.Cache != nil {
		if err := h.Cache.Health(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, map[string]any{"healthy": healthy, "checks": checks})
}
