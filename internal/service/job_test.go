package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/domain/watch"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
	"github.com/sportwire/ingest-admin/internal/observability/notify"
)

// stubAuthority is a scripted in-memory job authority.
type stubAuthority struct {
	startID    string
	startErr   error
	startCalls []*model.StartJobRequest

	resumeID   string
	resumeErr  error
	resumeFrom []string

	statuses  map[string]*model.Job
	statusErr error
}

func (a *stubAuthority) Status(_ context.Context, jobID string) (*model.Job, error) {
	if a.statusErr != nil {
		return nil, a.statusErr
	}
	job, ok := a.statuses[jobID]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", jobID)
	}
	cp := *job
	return &cp, nil
}

func (a *stubAuthority) Start(_ context.Context, req *model.StartJobRequest) (string, error) {
	a.startCalls = append(a.startCalls, req)
	if a.startErr != nil {
		return "", a.startErr
	}
	return a.startID, nil
}

func (a *stubAuthority) Resume(_ context.Context, jobID string) (string, error) {
	a.resumeFrom = append(a.resumeFrom, jobID)
	if a.resumeErr != nil {
		return "", a.resumeErr
	}
	if a.resumeID != "" {
		return a.resumeID, nil
	}
	return jobID, nil
}

// stubJobRepo is an in-memory job mirror.
type stubJobRepo struct {
	mu        sync.Mutex
	jobs      map[string]*model.Job
	upsertErr error
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{jobs: make(map[string]*model.Job)}
}

func (r *stubJobRepo) Upsert(_ context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
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

func (r *stubJobRepo) List(_ context.Context, _ *model.JobListOptions) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (r *stubJobRepo) ListBySubject(_ context.Context, opts model.JobListBySubjectOptions) ([]*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Job
	for _, j := range r.jobs {
		if j.Subject == opts.Subject {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *stubJobRepo) Stats(_ context.Context) (*model.JobStats, error) {
	return &model.JobStats{}, nil
}

func (r *stubJobRepo) LatestForSubject(_ context.Context, subject string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.Subject == subject {
			cp := *j
			return &cp, nil
		}
	}
	return nil, apperrors.NotFoundf("no job for subject %s", subject)
}

// stubWatcher records watch-set mutations without running a loop.
type stubWatcher struct {
	mu       sync.Mutex
	tracked  map[string]string
	trackErr error
}

func newStubWatcher() *stubWatcher {
	return &stubWatcher{tracked: make(map[string]string)}
}

func (w *stubWatcher) Track(subject, jobID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.trackErr != nil {
		return w.trackErr
	}
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
	out := make([]watch.TrackedJob, 0, len(w.tracked))
	for subject, id := range w.tracked {
		out = append(out, watch.TrackedJob{Subject: subject, JobID: id})
	}
	return out
}

// stubAudit captures recorded audit entries.
type stubAudit struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func (a *stubAudit) Record(_ context.Context, entry *model.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *stubAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

// stubNotifier captures failure payloads.
type stubNotifier struct {
	mu       sync.Mutex
	payloads []notify.JobFailurePayload
}

func (n *stubNotifier) NotifyJobFailure(_ context.Context, payload notify.JobFailurePayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, payload)
}

func (n *stubNotifier) Enabled() bool { return true }

type jobHarness struct {
	svc       *JobService
	authority *stubAuthority
	repo      *stubJobRepo
	watcher   *stubWatcher
	audit     *stubAudit
	notifier  *stubNotifier
}

func newJobHarness(t *testing.T, authority *stubAuthority) *jobHarness {
	t.Helper()
	h := &jobHarness{
		authority: authority,
		repo:      newStubJobRepo(),
		watcher:   newStubWatcher(),
		audit:     &stubAudit{},
		notifier:  &stubNotifier{},
	}
	svc, err := NewJobService(JobServiceOptions{
		Authority: h.authority,
		Repo:      h.repo,
		Watcher:   h.watcher,
		Audit:     h.audit,
		Notifier:  h.notifier,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func TestNewJobService_RequiresDependencies(t *testing.T) {
	_, err := NewJobService(JobServiceOptions{})
	require.Error(t, err)

	_, err = NewJobService(JobServiceOptions{Authority: &stubAuthority{}})
	require.Error(t, err)

	_, err = NewJobService(JobServiceOptions{
		Authority: &stubAuthority{},
		Repo:      newStubJobRepo(),
	})
	require.Error(t, err)
}

func TestJobService_Start(t *testing.T) {
	authority := &stubAuthority{
		startID: "job-1",
		statuses: map[string]*model.Job{
			"job-1": {ID: "job-1", Type: model.JobTypeDeepIngest, Status: model.JobStatusQueued},
		},
	}
	h := newJobHarness(t, authority)

	job, err := h.svc.Start(context.Background(), "ops@example.com", &model.StartJobRequest{
		Type:    model.JobTypeDeepIngest,
		Subject: "season:42",
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, "season:42", job.Subject)

	assert.True(t, h.watcher.Tracking("season:42"))

	mirrored, err := h.repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, mirrored.Status)

	assert.Equal(t, []string{"job.start"}, h.audit.actions())
}

func TestJobService_Start_SubjectConflict(t *testing.T) {
	authority := &stubAuthority{startID: "job-2"}
	h := newJobHarness(t, authority)
	require.NoError(t, h.watcher.Track("season:42", "job-1"))

	_, err := h.svc.Start(context.Background(), "ops", &model.StartJobRequest{
		Type:    model.JobTypeDeepIngest,
		Subject: "season:42",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Empty(t, authority.startCalls, "authority must not be called on conflict")
}

func TestJobService_Start_Validation(t *testing.T) {
	h := newJobHarness(t, &stubAuthority{})

	_, err := h.svc.Start(context.Background(), "ops", &model.StartJobRequest{
		Type: model.JobType("mystery"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.svc.Start(context.Background(), "ops", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestJobService_Start_AuthorityError(t *testing.T) {
	authority := &stubAuthority{startErr: errors.New("authority down")}
	h := newJobHarness(t, authority)

	_, err := h.svc.Start(context.Background(), "ops", &model.StartJobRequest{
		Type:    model.JobTypeMetricsSync,
		Subject: "league:7",
	})
	require.Error(t, err)
	assert.False(t, h.watcher.Tracking("league:7"))
}

func TestJobService_Start_SeedsMirrorWhenStatusLags(t *testing.T) {
	// The authority accepted the job but its status endpoint is not yet
	// consistent; the mirror is seeded queued.
	authority := &stubAuthority{startID: "job-3", statuses: map[string]*model.Job{}}
	h := newJobHarness(t, authority)

	job, err := h.svc.Start(context.Background(), "ops", &model.StartJobRequest{
		Type:    model.JobTypeBacktest,
		Subject: "strategy:9",
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, model.JobTypeBacktest, job.Type)
}

func TestJobService_Resume(t *testing.T) {
	authority := &stubAuthority{
		resumeID: "job-10b",
		statuses: map[string]*model.Job{
			"job-10b": {ID: "job-10b", Type: model.JobTypeDeepIngest, Status: model.JobStatusQueued},
		},
	}
	h := newJobHarness(t, authority)
	require.NoError(t, h.repo.Upsert(context.Background(), &model.Job{
		ID:       "job-10",
		Type:     model.JobTypeDeepIngest,
		Status:   model.JobStatusFailed,
		Subject:  "season:42",
		CanRetry: true,
	}))

	job, err := h.svc.Resume(context.Background(), "ops", "job-10")
	require.NoError(t, err)
	assert.Equal(t, "job-10b", job.ID)
	assert.Equal(t, "season:42", job.Subject)
	assert.Equal(t, []string{"job-10"}, authority.resumeFrom)
	assert.True(t, h.watcher.Tracking("season:42"))
	assert.Equal(t, []string{"job.resume"}, h.audit.actions())
}

func TestJobService_Resume_UnknownJob(t *testing.T) {
	h := newJobHarness(t, &stubAuthority{})

	_, err := h.svc.Resume(context.Background(), "ops", "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobService_Resume_SubjectConflict(t *testing.T) {
	h := newJobHarness(t, &stubAuthority{})
	require.NoError(t, h.repo.Upsert(context.Background(), &model.Job{
		ID:      "job-20",
		Subject: "season:8",
		Status:  model.JobStatusPaused,
	}))
	require.NoError(t, h.watcher.Track("season:8", "job-21"))

	_, err := h.svc.Resume(context.Background(), "ops", "job-20")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestJobService_Get_PrefersAuthority(t *testing.T) {
	authority := &stubAuthority{
		statuses: map[string]*model.Job{
			"job-1": {ID: "job-1", Status: model.JobStatusRunning},
		},
	}
	h := newJobHarness(t, authority)
	require.NoError(t, h.repo.Upsert(context.Background(), &model.Job{
		ID:      "job-1",
		Status:  model.JobStatusQueued,
		Subject: "season:42",
	}))

	job, err := h.svc.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, job.Status, "authority view wins")
	assert.Equal(t, "season:42", job.Subject, "subject comes from the mirror")
}

func TestJobService_Get_FallsBackToMirror(t *testing.T) {
	authority := &stubAuthority{statusErr: errors.New("connection refused")}
	h := newJobHarness(t, authority)
	require.NoError(t, h.repo.Upsert(context.Background(), &model.Job{
		ID:     "job-1",
		Status: model.JobStatusRunning,
	}))

	job, err := h.svc.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, job.Status)
}

func TestJobService_Get_NotFoundPassesThrough(t *testing.T) {
	authority := &stubAuthority{statuses: map[string]*model.Job{}}
	h := newJobHarness(t, authority)

	_, err := h.svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestJobService_HandleFinished_NotifiesOnFailure(t *testing.T) {
	h := newJobHarness(t, &stubAuthority{})
	started := time.Now().Add(-time.Minute)

	h.svc.HandleFinished("season:42", &model.Job{
		ID:        "job-1",
		Type:      model.JobTypeDeepIngest,
		Status:    model.JobStatusFailed,
		Phase:     "fetch_fixtures",
		CanRetry:  true,
		StartedAt: &started,
		ErrorLog: []model.JobLogEntry{
			{Message: "provider timeout"},
		},
	})

	mirrored, err := h.repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, mirrored.Status)
	assert.Equal(t, "season:42", mirrored.Subject)
	require.NotNil(t, mirrored.CompletedAt)

	require.Len(t, h.notifier.payloads, 1)
	payload := h.notifier.payloads[0]
	assert.Equal(t, "job-1", payload.JobID)
	assert.Equal(t, "season:42", payload.Subject)
	assert.Equal(t, "provider timeout", payload.Error)
	assert.True(t, payload.CanRetry)
}

func TestJobService_HandleFinished_NoNotificationOnSuccess(t *testing.T) {
	h := newJobHarness(t, &stubAuthority{})

	h.svc.HandleFinished("season:42", &model.Job{
		ID:     "job-1",
		Type:   model.JobTypeDeepIngest,
		Status: model.JobStatusSucceeded,
	})

	assert.Empty(t, h.notifier.payloads)
}

func TestJobService_Untrack(t *testing.T) {
	h := newJobHarness(t, &stubAuthority{})
	require.NoError(t, h.watcher.Track("season:42", "job-1"))

	h.svc.Untrack(context.Background(), "ops", "season:42")

	assert.False(t, h.watcher.Tracking("season:42"))
	assert.Equal(t, []string{"job.untrack"}, h.audit.actions())
}
