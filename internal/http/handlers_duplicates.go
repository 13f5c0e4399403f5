package httpx

import (
	"errors"
	"net/http"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/service"
)

// DuplicateHandlers provides HTTP handlers for the duplicate fixture review
// queue.
type DuplicateHandlers struct {
	Svc *service.DuplicateService
}

// List handles GET /api/duplicates.
func (h *DuplicateHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts := model.DuplicatesListOptions{
		Limit:         parseIntQuery(r, "limit", 0),
		Offset:        parseIntQuery(r, "offset", 0),
		LeagueID:      parseStringQuery(r, "league_id"),
		MinConfidence: parseFloatQuery(r, "min_confidence"),
	}
	if raw := parseStringQuery(r, "status"); raw != nil {
		status := model.DuplicateStatus(*raw)
		if !status.Valid() {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_status", Err: errors.New("unknown duplicate status")})
			return
		}
		opts.Status = &status
	}

	duplicates, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"duplicates": duplicates})
}

// Scan handles POST /api/leagues/{id}/duplicates/scan: detect candidate
// pairs among the league's upcoming fixtures and queue them for review.
func (h *DuplicateHandlers) Scan(w http.ResponseWriter, r *http.Request) {
	found, err := h.Svc.Scan(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "scan_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"found": len(found), "duplicates": found})
}

// Merge handles POST /api/duplicates/{id}/merge.
func (h *DuplicateHandlers) Merge(w http.ResponseWriter, r *http.Request) {
	dup, err := h.Svc.Merge(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "merge_failed")
		return
	}
	WriteJSON(w, http.StatusOK, dup)
}

// Dismiss handles POST /api/duplicates/{id}/dismiss.
func (h *DuplicateHandlers) Dismiss(w http.ResponseWriter, r *http.Request) {
	dup, err := h.Svc.Dismiss(r.Context(), ActorFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err, "dismiss_failed")
		return
	}
	WriteJSON(w, http.StatusOK, dup)
}
