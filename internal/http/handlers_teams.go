package httpx

import (
	"errors"
	"net/http"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/service"
)

// TeamHandlers provides HTTP handlers for teams, aliases, and the unmapped
// name review queue.
type TeamHandlers struct {
	Svc *service.TeamService
}

// List handles GET /api/teams.
func (h *TeamHandlers) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Svc.List(r.Context(), model.TeamsListOptions{
		Limit:    parseIntQuery(r, "limit", 0),
		Offset:   parseIntQuery(r, "offset", 0),
		Q:        parseStringQuery(r, "q"),
		LeagueID: parseStringQuery(r, "league_id"),
		Sort:     r.URL.Query().Get("sort"),
		Dir:      r.URL.Query().Get("dir"),
	})
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

// Get handles GET /api/teams/{id}.
func (h *TeamHandlers) Get(w http.ResponseWriter, r *http.Request) {
	team, err := h.Svc.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}
	WriteJSON(w, http.StatusOK, team)
}

// Update handles PATCH /api/teams/{id}.
func (h *TeamHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.TeamPatch
	if !DecodeJSON(w, r, &patch) {
		return
	}

	team, err := h.Svc.Update(r.Context(), service.UpdateTeamParams{
		ID:    r.PathValue("id"),
		Actor: ActorFromContext(r.Context()),
		Patch: patch,
	})
	if err != nil {
		WriteServiceError(w, err, "update_failed")
		return
	}
	WriteJSON(w, http.StatusOK, team)
}

// ListAliases handles GET /api/teams/{id}/aliases.
func (h *TeamHandlers) ListAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := h.Svc.ListAliases(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"aliases": aliases})
}

// ListUnmapped handles GET /api/leagues/{id}/unmapped: the provider-name
// review queue for one league.
func (h *TeamHandlers) ListUnmapped(w http.ResponseWriter, r *http.Request) {
	names, err := h.Svc.ListUnmapped(r.Context(), r.PathValue("id"), parseIntQuery(r, "limit", 0))
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"unmapped": names})
}

// Suggest handles GET /api/leagues/{id}/suggestions?provider=&name=.
func (h *TeamHandlers) Suggest(w http.ResponseWriter, r *http.Request) {
	provider := r.URL.Query().Get("provider")
	name := r.URL.Query().Get("name")
	if provider == "" || name == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: errors.New("provider and name are required")})
		return
	}

	suggestions, err := h.Svc.SuggestAliases(r.Context(), service.SuggestAliasesParams{
		LeagueID: r.PathValue("id"),
		Provider: provider,
		Incoming: name,
		Limit:    parseIntQuery(r, "limit", 0),
	})
	if err != nil {
		WriteServiceError(w, err, "suggest_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

type acceptSuggestionRequest struct {
	TeamID   string `json:"team_id"`
	Provider string `json:"provider"`
	Incoming string `json:"incoming"`
}

// AcceptSuggestion handles POST /api/aliases/accept: persist a suggested
// mapping and clear it from the unmapped queue.
func (h *TeamHandlers) AcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	var req acceptSuggestionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	alias, err := h.Svc.AcceptSuggestion(r.Context(), service.AcceptSuggestionParams{
		Actor:    ActorFromContext(r.Context()),
		TeamID:   req.TeamID,
		Provider: req.Provider,
		Incoming: req.Incoming,
	})
	if err != nil {
		WriteServiceError(w, err, "accept_failed")
		return
	}
	WriteJSON(w, http.StatusCreated, alias)
}

type rejectSuggestionRequest struct {
	Provider string `json:"provider"`
	Incoming string `json:"incoming"`
}

// RejectSuggestion handles POST /api/aliases/reject: drop an incoming name
// from the unmapped queue without mapping it.
func (h *TeamHandlers) RejectSuggestion(w http.ResponseWriter, r *http.Request) {
	var req rejectSuggestionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	err := h.Svc.RejectSuggestion(r.Context(), ActorFromContext(r.Context()), service.RejectSuggestionParams{
		Provider: req.Provider,
		Incoming: req.Incoming,
	})
	if err != nil {
		WriteServiceError(w, err, "reject_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
