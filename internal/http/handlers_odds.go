package httpx

import (
	"errors"
	"net/http"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/service"
)

// OddsHandlers provides HTTP handlers for odds anomaly review and quote
// evaluation.
type OddsHandlers struct {
	Svc *service.OddsService
}

func anomalyListOptions(r *http.Request) (model.AnomaliesListOptions, bool) {
	opts := model.AnomaliesListOptions{
		Limit:     parseIntQuery(r, "limit", 0),
		Offset:    parseIntQuery(r, "offset", 0),
		LeagueID:  parseStringQuery(r, "league_id"),
		Bookmaker: parseStringQuery(r, "bookmaker"),
		Since:     parseTimeQuery(r, "since"),
		Sort:      r.URL.Query().Get("sort"),
		Dir:       r.URL.Query().Get("dir"),
	}
	if raw := parseStringQuery(r, "severity"); raw != nil {
		severity := model.AnomalySeverity(*raw)
		if !severity.Valid() {
			return opts, false
		}
		opts.Severity = &severity
	}
	return opts, true
}

// ListAnomalies handles GET /api/odds/anomalies.
func (h *OddsHandlers) ListAnomalies(w http.ResponseWriter, r *http.Request) {
	opts, ok := anomalyListOptions(r)
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_severity", Err: errInvalidSeverity})
		return
	}

	anomalies, err := h.Svc.ListAnomalies(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"anomalies": anomalies})
}

// CountAnomalies handles GET /api/odds/anomalies/count with the same filters
// as the list endpoint; the dashboard badge polls this.
func (h *OddsHandlers) CountAnomalies(w http.ResponseWriter, r *http.Request) {
	opts, ok := anomalyListOptions(r)
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_severity", Err: errInvalidSeverity})
		return
	}

	count, err := h.Svc.CountAnomalies(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err, "count_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"count": count})
}

// Evaluate handles POST /api/odds/evaluate: run one bookmaker quote through
// the anomaly rules and persist whatever fires.
func (h *OddsHandlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	var quote model.OddsQuote
	if !DecodeJSON(w, r, &quote) {
		return
	}

	anomalies, err := h.Svc.Evaluate(r.Context(), &quote)
	if err != nil {
		WriteServiceError(w, err, "evaluate_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"anomalies": anomalies})
}

var errInvalidSeverity = errors.New("unknown anomaly severity")
