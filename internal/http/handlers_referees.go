package httpx

import (
	"errors"
	"net/http"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/service"
)

// RefereeHandlers provides HTTP handlers for referee profiles and the
// strictness index.
type RefereeHandlers struct {
	Svc *service.RefereeService
}

// List handles GET /api/referees.
func (h *RefereeHandlers) List(w http.ResponseWriter, r *http.Request) {
	referees, err := h.Svc.List(r.Context(), model.RefereesListOptions{
		Limit:   parseIntQuery(r, "limit", 0),
		Offset:  parseIntQuery(r, "offset", 0),
		Q:       parseStringQuery(r, "q"),
		Country: parseStringQuery(r, "country"),
		Sort:    r.URL.Query().Get("sort"),
		Dir:     r.URL.Query().Get("dir"),
	})
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"referees": referees})
}

// Get handles GET /api/referees/{id}.
func (h *RefereeHandlers) Get(w http.ResponseWriter, r *http.Request) {
	referee, err := h.Svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}
	WriteJSON(w, http.StatusOK, referee)
}

// Update handles PATCH /api/referees/{id}.
func (h *RefereeHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.RefereePatch
	if !DecodeJSON(w, r, &patch) {
		return
	}

	referee, err := h.Svc.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		WriteServiceError(w, err, "update_failed")
		return
	}
	WriteJSON(w, http.StatusOK, referee)
}

// Strictness handles GET /api/referees/{id}/strictness?league_id=.
// The index compares the referee's discipline rates against the league baseline.
func (h *RefereeHandlers) Strictness(w http.ResponseWriter, r *http.Request) {
	leagueID := r.URL.Query().Get("league_id")
	if leagueID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: errors.New("league_id is required")})
		return
	}

	index, err := h.Svc.Strictness(r.Context(), r.PathValue("id"), leagueID)
	if err != nil {
		WriteServiceError(w, err, "strictness_failed")
		return
	}
	WriteJSON(w, http.StatusOK, index)
}
