package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/domain/watch"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
	"github.com/sportwire/ingest-admin/internal/service"
)

// stubAuthority scripts the remote job system for handler tests.
type stubAuthority struct {
	startID  string
	startErr error
	statuses map[string]*model.Job
}

func (a *stubAuthority) Status(_ context.Context, jobID string) (*model.Job, error) {
	job, ok := a.statuses[jobID]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	cp := *job
	return &cp, nil
}

func (a *stubAuthority) Start(_ context.Context, _ *model.StartJobRequest) (string, error) {
	if a.startErr != nil {
		return "", a.startErr
	}
	return a.startID, nil
}

func (a *stubAuthority) Resume(_ context.Context, jobID string) (string, error) {
	return jobID, nil
}

// stubJobRepo is an in-memory job mirror.
type stubJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{jobs: make(map[string]*model.Job)}
}

func (r *stubJobRepo) Upsert(_ context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *stubJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

func (r *stubJobRepo) List(_ context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Job
	for _, job := range r.jobs {
		if opts != nil && opts.Status != nil && job.Status != *opts.Status {
			continue
		}
		cp := *job
		out = append(out, &cp)
	}
	return out, nil
}

func (r *stubJobRepo) ListBySubject(_ context.Context, opts model.JobListBySubjectOptions) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Job
	for _, job := range r.jobs {
		if job.Subject == opts.Subject {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubJobRepo) Stats(_ context.Context) (*model.JobStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.JobStats{}
	for _, job := range r.jobs {
		switch job.Status {
		case model.JobStatusQueued:
			stats.Queued++
		case model.JobStatusRunning:
			stats.Running++
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

func (r *stubJobRepo) LatestForSubject(_ context.Context, subject string) (*model.Job, error) {
	jobs, _ := r.ListBySubject(context.Background(), model.JobListBySubjectOptions{Subject: subject})
	if len(jobs) == 0 {
		return nil, apperrors.NotFoundf("no jobs for subject %s", subject)
	}
	return jobs[0], nil
}

// stubWatcher records track/untrack calls without polling anything.
type stubWatcher struct {
	mu      sync.Mutex
	tracked map[string]string
}

func newStubWatcher() *stubWatcher {
	return &stubWatcher{tracked: make(map[string]string)}
}

func (w *stubWatcher) Track(subject, jobID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracked[subject] = jobID
	return nil
}

func (w *stubWatcher) Untrack(subject string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.tracked, subject)
}

func (w *stubWatcher) Tracking(subject string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.tracked[subject]
	return ok
}

func (w *stubWatcher) Snapshot() []watch.TrackedJob {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []watch.TrackedJob
	for subject, jobID := range w.tracked {
		out = append(out, watch.TrackedJob{Subject: subject, JobID: jobID})
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type jobRouterFixture struct {
	authority *stubAuthority
	repo      *stubJobRepo
	watcher   *stubWatcher
	handler   http.Handler
}

func newJobRouterFixture(t *testing.T) *jobRouterFixture {
	t.Helper()

	authority := &stubAuthority{startID: "job-1", statuses: map[string]*model.Job{}}
	repo := newStubJobRepo()
	watcher := newStubWatcher()

	svc, err := service.NewJobService(service.JobServiceOptions{
		Authority: authority,
		Repo:      repo,
		Watcher:   watcher,
		Logger:    discardLogger(),
	})
	require.NoError(t, err)

	handler := NewRouter(RouterServices{Jobs: svc, Logger: discardLogger()})
	return &jobRouterFixture{authority: authority, repo: repo, watcher: watcher, handler: handler}
}

func (f *jobRouterFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestJobHandlers_Start(t *testing.T) {
	f := newJobRouterFixture(t)
	f.authority.statuses["job-1"] = &model.Job{
		ID:      "job-1",
		Type:    model.JobTypeDeepIngest,
		Status:  model.JobStatusQueued,
		Subject: "league:epl",
	}

	rec := f.do(http.MethodPost, "/api/jobs", `{"type":"deep_ingest","subject":"league:epl"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var job model.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "job-1", job.ID)
	assert.True(t, f.watcher.Tracking("league:epl"))
}

func TestJobHandlers_StartConflictWhileTracked(t *testing.T) {
	f := newJobRouterFixture(t)
	require.NoError(t, f.watcher.Track("league:epl", "job-0"))

	rec := f.do(http.MethodPost, "/api/jobs", `{"type":"deep_ingest","subject":"league:epl"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "conflict")
}

func TestJobHandlers_StartRejectsUnknownFields(t *testing.T) {
	f := newJobRouterFixture(t)

	rec := f.do(http.MethodPost, "/api/jobs", `{"type":"deep_ingest","subject":"x","bogus":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestJobHandlers_StartRejectsInvalidType(t *testing.T) {
	f := newJobRouterFixture(t)

	rec := f.do(http.MethodPost, "/api/jobs", `{"type":"nonsense","subject":"league:epl"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_failed")
}

func TestJobHandlers_GetNotFound(t *testing.T) {
	f := newJobRouterFixture(t)

	rec := f.do(http.MethodGet, "/api/jobs/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestJobHandlers_ListFiltersByStatus(t *testing.T) {
	f := newJobRouterFixture(t)
	now := time.Now()
	require.NoError(t, f.repo.Upsert(context.Background(), &model.Job{
		ID: "a", Type: model.JobTypeDeepIngest, Status: model.JobStatusRunning, Subject: "league:epl", CreatedAt: now,
	}))
	require.NoError(t, f.repo.Upsert(context.Background(), &model.Job{
		ID: "b", Type: model.JobTypeBacktest, Status: model.JobStatusFailed, Subject: "strategy:s1", CreatedAt: now,
	}))

	rec := f.do(http.MethodGet, "/api/jobs?status=running", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs []model.Job `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "a", resp.Jobs[0].ID)
}

func TestJobHandlers_ListRejectsUnknownStatus(t *testing.T) {
	f := newJobRouterFixture(t)

	rec := f.do(http.MethodGet, "/api/jobs?status=exploded", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_status")
}

func TestJobHandlers_WatchlistAndUntrack(t *testing.T) {
	f := newJobRouterFixture(t)
	require.NoError(t, f.watcher.Track("league:epl", "job-9"))

	rec := f.do(http.MethodGet, "/api/watchlist", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Watchlist []watchlistEntry `json:"watchlist"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Watchlist, 1)
	assert.Equal(t, "league:epl", resp.Watchlist[0].Subject)
	assert.Equal(t, "job-9", resp.Watchlist[0].JobID)

	rec = f.do(http.MethodDelete, "/api/watchlist/league:epl", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.watcher.Tracking("league:epl"))
}

func TestJobHandlers_History(t *testing.T) {
	f := newJobRouterFixture(t)
	require.NoError(t, f.repo.Upsert(context.Background(), &model.Job{
		ID: "a", Type: model.JobTypeDeepIngest, Status: model.JobStatusSucceeded, Subject: "league:epl",
	}))

	rec := f.do(http.MethodGet, "/api/subjects/league:epl/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subject":"league:epl"`)
}

func TestHealthLive(t *testing.T) {
	f := newJobRouterFixture(t)

	rec := f.do(http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
