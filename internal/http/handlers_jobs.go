// Package httpx provides the JSON API surface of the ingest admin service.
package httpx

import (
	"errors"
	"net/http"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/service"
)

// JobHandlers provides HTTP handlers for job mirror and watch-set operations.
type JobHandlers struct {
	Svc *service.JobService
}

// Start handles POST /api/jobs: submit a job to the authority and track it.
func (h *JobHandlers) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Start(r.Context(), ActorFromContext(r.Context()), &req)
	if err != nil {
		WriteServiceError(w, err, "start_failed")
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// Resume handles POST /api/jobs/{id}/resume.
func (h *JobHandlers) Resume(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	job, err := h.Svc.Resume(r.Context(), ActorFromContext(r.Context()), jobID)
	if err != nil {
		WriteServiceError(w, err, "resume_failed")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Get handles GET /api/jobs/{id}.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")})
		return
	}

	job, err := h.Svc.Get(r.Context(), jobID)
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/jobs with status/type/subject filters.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts := &model.JobListOptions{
		Subject:   parseStringQuery(r, "subject"),
		SortBy:    r.URL.Query().Get("sort"),
		SortOrder: r.URL.Query().Get("dir"),
		Limit:     parseIntQuery(r, "limit", 0),
		Offset:    parseIntQuery(r, "offset", 0),
	}
	if raw := parseStringQuery(r, "status"); raw != nil {
		status := model.JobStatus(*raw)
		if !status.Valid() {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_status", Err: errors.New("unknown job status")})
			return
		}
		opts.Status = &status
	}
	if raw := parseStringQuery(r, "type"); raw != nil {
		jobType := model.JobType(*raw)
		if !jobType.Valid() {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_type", Err: errors.New("unknown job type")})
			return
		}
		opts.Type = &jobType
	}

	jobs, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// History handles GET /api/subjects/{subject}/jobs: one subject's job history.
func (h *JobHandlers) History(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	if subject == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("subject is required")})
		return
	}

	jobs, err := h.Svc.ListBySubject(r.Context(), model.JobListBySubjectOptions{
		Subject: subject,
		Limit:   parseIntQuery(r, "limit", 0),
		Offset:  parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"subject": subject, "jobs": jobs})
}

// Stats handles GET /api/jobs/stats.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.Stats(r.Context())
	if err != nil {
		WriteServiceError(w, err, "stats_failed")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// Watchlist handles GET /api/watchlist: a snapshot of the live watch set.
func (h *JobHandlers) Watchlist(w http.ResponseWriter, r *http.Request) {
	entries := h.Svc.Watchlist()
	out := make([]watchlistEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, watchlistEntry{
			Subject: e.Subject,
			JobID:   e.JobID,
			Job:     e.Job,
			Stale:   e.Stale,
		})
	}
	WriteJSON(w, http.StatusOK, map[string]any{"watchlist": out})
}

type watchlistEntry struct {
	Subject string     `json:"subject"`
	JobID   string     `json:"job_id"`
	Job     *model.Job `json:"job,omitempty"`
	Stale   bool       `json:"stale"`
}

// Untrack handles DELETE /api/watchlist/{subject}: stop watching a subject
// without touching the remote job.
func (h *JobHandlers) Untrack(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	if subject == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("subject is required")})
		return
	}

	h.Svc.Untrack(r.Context(), ActorFromContext(r.Context()), subject)
	w.WriteHeader(http.StatusNoContent)
}
