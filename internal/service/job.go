package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/domain/watch"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
	"github.com/sportwire/ingest-admin/internal/observability/metrics"
	"github.com/sportwire/ingest-admin/internal/observability/notify"
	"github.com/sportwire/ingest-admin/internal/observability/statsd"
)

// finishedHookTimeout bounds the work done per finished-job callback. The
// watcher invokes the hook from its own goroutine without a request context.
const finishedHookTimeout = 10 * time.Second

// jobWatcher is the subset of the watch client the job service drives.
type jobWatcher interface {
	Track(subject, jobID string) error
	Untrack(subject string)
	Tracking(subject string) bool
	Snapshot() []watch.TrackedJob
}

// failureNotifier dispatches job failure payloads to configured sinks.
type failureNotifier interface {
	NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload)
	Enabled() bool
}

// auditRecorder records one admin action; implemented by AuditService.
type auditRecorder interface {
	Record(ctx context.Context, entry *model.AuditEntry) error
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Authority core.JobAuthority  // Required: remote job system client
	Repo      core.JobRepository // Required: local job mirror
	Watcher   jobWatcher         // Required: adaptive status watcher
	Audit     auditRecorder      // Optional: admin action audit log
	Notifier  failureNotifier    // Optional: failure fan-out
	Logger    *slog.Logger       // Optional: structured logger
	Metrics   statsd.Sink        // Optional: metrics sink (StatsD-compatible)
}

// JobService starts, resumes, and observes remotely-executed jobs. The
// authority owns execution; this service owns the watch set and the local
// mirror the dashboard reads from.
type JobService struct {
	authority core.JobAuthority
	repo      core.JobRepository
	watcher   jobWatcher
	audit     auditRecorder
	notifier  failureNotifier
	logger    *slog.Logger
	metrics   statsd.Sink
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Authority == nil {
		return nil, errors.New("JobAuthority is required")
	}
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Watcher == nil {
		return nil, errors.New("Watcher is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobService{
		authority: opts.Authority,
		repo:      opts.Repo,
		watcher:   opts.Watcher,
		audit:     opts.Audit,
		notifier:  opts.Notifier,
		logger:    logger.With("component", "job_service"),
		metrics:   opts.Metrics,
	}, nil
}

// Start submits a new job to the authority and begins tracking it. At most
// one job may be in flight per subject; a second start for a tracked subject
// is rejected with a conflict.
func (s *JobService) Start(ctx context.Context, actor string, req *model.StartJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("start request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if s.watcher.Tracking(req.Subject) {
		return nil, apperrors.Conflictf("%s: %s", model.ErrJobAlreadyRunning.Error(), req.Subject)
	}

	jobID, err := s.authority.Start(ctx, req)
	if err != nil {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			JobType:    string(req.Type),
			Transition: "started",
			Result:     metrics.ResultError,
			Err:        err,
		})
		return nil, fmt.Errorf("start job on authority: %w", err)
	}

	job := s.fetchOrSeed(ctx, jobID, req)
	if upsertErr := s.repo.Upsert(ctx, job); upsertErr != nil {
		s.logger.ErrorContext(ctx, "failed to mirror started job",
			"job_id", jobID, "error", upsertErr)
	}

	if trackErr := s.watcher.Track(req.Subject, jobID); trackErr != nil {
		return nil, fmt.Errorf("track job %s: %w", jobID, trackErr)
	}

	s.recordAudit(ctx, auditEvent{
		Actor:      actor,
		Action:     "job.start",
		EntityType: "job",
		EntityID:   jobID,
		Detail:     map[string]string{"type": string(req.Type), "subject": req.Subject},
	})
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		JobType:    string(req.Type),
		Transition: "started",
		Result:     metrics.ResultSuccess,
	})

	s.logger.InfoContext(ctx, "job started",
		"job_id", jobID, "type", req.Type, "subject", req.Subject)
	return job, nil
}

// Resume asks the authority to continue a paused or failed-but-retryable job
// and re-enters it into the watch set under its original subject.
func (s *JobService) Resume(ctx context.Context, actor, jobID string) (*model.Job, error) {
	prior, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if prior.Subject == "" {
		return nil, apperrors.Validationf("job %s has no subject to resume under", jobID)
	}
	if s.watcher.Tracking(prior.Subject) {
		return nil, apperrors.Conflictf("%s: %s", model.ErrJobAlreadyRunning.Error(), prior.Subject)
	}

	resumedID, err := s.authority.Resume(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("resume job on authority: %w", err)
	}

	job, statusErr := s.authority.Status(ctx, resumedID)
	if statusErr != nil {
		// The resume succeeded; seed the mirror from what we knew.
		job = prior
		job.ID = resumedID
		job.Status = model.JobStatusQueued
		job.CompletedAt = nil
	}
	job.Subject = prior.Subject
	if upsertErr := s.repo.Upsert(ctx, job); upsertErr != nil {
		s.logger.ErrorContext(ctx, "failed to mirror resumed job",
			"job_id", resumedID, "error", upsertErr)
	}

	if trackErr := s.watcher.Track(prior.Subject, resumedID); trackErr != nil {
		return nil, fmt.Errorf("track resumed job %s: %w", resumedID, trackErr)
	}

	s.recordAudit(ctx, auditEvent{
		Actor:      actor,
		Action:     "job.resume",
		EntityType: "job",
		EntityID:   resumedID,
		Detail:     map[string]string{"previous_job_id": jobID, "subject": prior.Subject},
	})
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		JobType:    string(job.Type),
		Transition: "resumed",
		Result:     metrics.ResultSuccess,
	})

	s.logger.InfoContext(ctx, "job resumed",
		"job_id", resumedID, "previous_job_id", jobID, "subject", prior.Subject)
	return job, nil
}

// Get returns the freshest view of one job: the authority when reachable,
// the local mirror otherwise.
func (s *JobService) Get(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.authority.Status(ctx, jobID)
	if err == nil {
		if mirrored, mirrorErr := s.repo.GetByID(ctx, jobID); mirrorErr == nil {
			job.Subject = mirrored.Subject
		}
		return job, nil
	}
	if apperrors.IsNotFound(err) {
		return nil, err
	}

	mirrored, mirrorErr := s.repo.GetByID(ctx, jobID)
	if mirrorErr != nil {
		return nil, fmt.Errorf("job %s unavailable on authority and mirror: %w", jobID, err)
	}
	s.logger.WarnContext(ctx, "serving job from mirror, authority unreachable",
		"job_id", jobID, "error", err)
	return mirrored, nil
}

// List returns mirrored jobs with optional filters.
func (s *JobService) List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	return s.repo.List(ctx, opts)
}

// ListBySubject returns the job history of one subject, newest first.
func (s *JobService) ListBySubject(ctx context.Context, opts model.JobListBySubjectOptions) ([]*model.Job, error) {
	return s.repo.ListBySubject(ctx, opts)
}

// Stats returns mirror-wide job counts per status bucket.
func (s *JobService) Stats(ctx context.Context) (*model.JobStats, error) {
	return s.repo.Stats(ctx)
}

// Watchlist returns a snapshot of the live watch set for the dashboard.
func (s *JobService) Watchlist() []watch.TrackedJob {
	return s.watcher.Snapshot()
}

// Untrack drops a subject from the watch set without touching the authority.
func (s *JobService) Untrack(ctx context.Context, actor, subject string) {
	s.watcher.Untrack(subject)
	s.recordAudit(ctx, auditEvent{
		Actor:      actor,
		Action:     "job.untrack",
		EntityType: "job",
		EntityID:   subject,
	})
}

// HandleFinished is the watcher's completion hook: it mirrors the terminal
// state and fans out failure notifications. The watcher has already removed
// the job from the watch set, so this runs at most once per tracked job.
func (s *JobService) HandleFinished(subject string, job *model.Job) {
	if job == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), finishedHookTimeout)
	defer cancel()

	job.Subject = subject
	if job.CompletedAt == nil {
		now := time.Now().UTC()
		job.CompletedAt = &now
	}
	if err := s.repo.Upsert(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "failed to mirror finished job",
			"job_id", job.ID, "status", job.Status, "error", err)
	}

	result := metrics.ResultSuccess
	if job.Status == model.JobStatusFailed {
		result = metrics.ResultError
	}
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		JobType:    string(job.Type),
		Transition: "finished",
		Result:     result,
		Duration:   jobDuration(job),
	})

	s.logger.Info("job finished",
		"job_id", job.ID, "subject", subject, "status", job.Status)

	if job.Status == model.JobStatusFailed && s.notifier != nil && s.notifier.Enabled() {
		s.notifier.NotifyJobFailure(ctx, notify.JobFailurePayload{
			JobID:      job.ID,
			JobType:    string(job.Type),
			Subject:    subject,
			Phase:      job.Phase,
			Error:      job.LastError(),
			CanRetry:   job.CanRetry,
			OccurredAt: time.Now().UTC(),
		})
	}
}

// auditEvent groups the fields of one recorded admin action.
type auditEvent struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Detail     map[string]string
}

func (s *JobService) recordAudit(ctx context.Context, ev auditEvent) {
	if s.audit == nil {
		return
	}

	var detail json.RawMessage
	if len(ev.Detail) > 0 {
		if raw, err := json.Marshal(ev.Detail); err == nil {
			detail = raw
		}
	}

	entry := &model.AuditEntry{
		Actor:      ev.Actor,
		Action:     ev.Action,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Detail:     detail,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit entry",
			"action", ev.Action, "entity_id", ev.EntityID, "error", err)
	}
}

// fetchOrSeed returns the authority's view of a just-started job, or a
// queued placeholder if the status endpoint is not yet consistent.
func (s *JobService) fetchOrSeed(ctx context.Context, jobID string, req *model.StartJobRequest) *model.Job {
	job, err := s.authority.Status(ctx, jobID)
	if err == nil {
		job.Subject = req.Subject
		return job
	}

	now := time.Now().UTC()
	return &model.Job{
		ID:        jobID,
		Type:      req.Type,
		Status:    model.JobStatusQueued,
		Subject:   req.Subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func jobDuration(job *model.Job) time.Duration {
	if job.StartedAt == nil || job.CompletedAt == nil {
		return 0
	}
	d := job.CompletedAt.Sub(*job.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}
