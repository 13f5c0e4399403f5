package httpx

import (
	"net/http"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/service"
)

// AuditHandlers provides HTTP handlers for the admin action audit log.
type AuditHandlers struct {
	Svc *service.AuditService
}

// List handles GET /api/audit.
func (h *AuditHandlers) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Svc.List(r.Context(), model.AuditListOptions{
		Limit:      parseIntQuery(r, "limit", 0),
		Offset:     parseIntQuery(r, "offset", 0),
		Actor:      parseStringQuery(r, "actor"),
		EntityType: parseStringQuery(r, "entity_type"),
		EntityID:   parseStringQuery(r, "entity_id"),
		Since:      parseTimeQuery(r, "since"),
	})
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
