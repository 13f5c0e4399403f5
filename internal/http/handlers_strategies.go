package httpx

import (
	"net/http"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/service"
)

// StrategyHandlers provides HTTP handlers for the strategy lab.
type StrategyHandlers struct {
	Svc *service.StrategyService
}

// List handles GET /api/strategies.
func (h *StrategyHandlers) List(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.Svc.List(r.Context(), model.StrategiesListOptions{
		Limit:    parseIntQuery(r, "limit", 0),
		Offset:   parseIntQuery(r, "offset", 0),
		Q:        parseStringQuery(r, "q"),
		Archived: parseBoolQuery(r, "archived"),
		Sort:     r.URL.Query().Get("sort"),
		Dir:      r.URL.Query().Get("dir"),
	})
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"strategies": strategies})
}

// Get handles GET /api/strategies/{id}.
func (h *StrategyHandlers) Get(w http.ResponseWriter, r *http.Request) {
	strategy, err := h.Svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}
	WriteJSON(w, http.StatusOK, strategy)
}

// ListRuns handles GET /api/strategies/{id}/runs.
func (h *StrategyHandlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Svc.ListRuns(r.Context(), r.PathValue("id"), parseIntQuery(r, "limit", 0))
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// StartBacktest handles POST /api/strategies/{id}/backtest.
func (h *StrategyHandlers) StartBacktest(w http.ResponseWriter, r *http.Request) {
	run, err := h.Svc.StartBacktest(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "backtest_failed")
		return
	}
	WriteJSON(w, http.StatusAccepted, run)
}
