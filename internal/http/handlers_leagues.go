package httpx

import (
	"errors"
	"net/http"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/service"
)

// LeagueHandlers provides HTTP handlers for league configuration and
// deep-ingest kickoff.
type LeagueHandlers struct {
	Svc *service.LeagueService
}

// List handles GET /api/leagues.
func (h *LeagueHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts := model.LeaguesListOptions{
		Limit:  parseIntQuery(r, "limit", 0),
		Offset: parseIntQuery(r, "offset", 0),
		Q:      parseStringQuery(r, "q"),
		Sport:  parseStringQuery(r, "sport"),
		Sort:   r.URL.Query().Get("sort"),
		Dir:    r.URL.Query().Get("dir"),
	}
	if raw := parseStringQuery(r, "ingest_mode"); raw != nil {
		mode := model.IngestMode(*raw)
		if !mode.Valid() {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_ingest_mode", Err: errors.New("unknown ingest mode")})
			return
		}
		opts.IngestMode = &mode
	}

	leagues, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"leagues": leagues})
}

// Get handles GET /api/leagues/{id}.
func (h *LeagueHandlers) Get(w http.ResponseWriter, r *http.Request) {
	league, err := h.Svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}
	WriteJSON(w, http.StatusOK, league)
}

// Update handles PATCH /api/leagues/{id}: name, tier, and ingest mode.
func (h *LeagueHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.LeaguePatch
	if !DecodeJSON(w, r, &patch) {
		return
	}

	league, err := h.Svc.Update(r.Context(), service.UpdateLeagueParams{
		ID:    r.PathValue("id"),
		Actor: ActorFromContext(r.Context()),
		Patch: patch,
	})
	if err != nil {
		WriteServiceError(w, err, "update_failed")
		return
	}
	WriteJSON(w, http.StatusOK, league)
}

// StartDeepIngest handles POST /api/leagues/{id}/deep-ingest.
func (h *LeagueHandlers) StartDeepIngest(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.StartDeepIngest(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "deep_ingest_failed")
		return
	}
	WriteJSON(w, http.StatusAccepted, job)
}
