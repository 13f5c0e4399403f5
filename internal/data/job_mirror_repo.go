package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sportwire/ingest-admin/internal/data/database"
	"github.com/sportwire/ingest-admin/internal/data/pgxutil"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// JobMirrorRepo persists the local mirror of authority-owned jobs. Rows are
// observations refreshed by the watch client; the authority remains the
// source of truth for live state.
type JobMirrorRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewJobMirrorRepo creates a new JobMirrorRepo with real time provider.
func NewJobMirrorRepo(db *sql.DB) *JobMirrorRepo {
	return &JobMirrorRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewJobMirrorRepoWithTimeProvider creates a new JobMirrorRepo with a custom time provider (useful for tests).
func NewJobMirrorRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *JobMirrorRepo {
	return &JobMirrorRepo{DB: db, timeProvider: tp}
}

var jobColumns = []string{
	"id", "type", "status", "phase", "subject", "progress",
	"heartbeat_age_seconds", "throughput_per_min", "eta_seconds", "can_retry",
	"error_log", "started_at", "completed_at", "created_at", "updated_at",
}

// Upsert writes the latest observed state of one job. Existing rows keep
// their created_at; everything else reflects the newest observation.
func (r *JobMirrorRepo) Upsert(ctx context.Context, job *model.Job) error {
	now := r.timeProvider.Now().UTC()

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO jobs (
			id, type, status, phase, subject, progress,
			heartbeat_age_seconds, throughput_per_min, eta_seconds, can_retry,
			error_log, started_at, completed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			COALESCE($11, '[]'::jsonb), $12, $13, $14, $14
		)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			phase = EXCLUDED.phase,
			subject = EXCLUDED.subject,
			progress = EXCLUDED.progress,
			heartbeat_age_seconds = EXCLUDED.heartbeat_age_seconds,
			throughput_per_min = EXCLUDED.throughput_per_min,
			eta_seconds = EXCLUDED.eta_seconds,
			can_retry = EXCLUDED.can_retry,
			error_log = EXCLUDED.error_log,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`,
		job.ID,
		string(job.Type),
		string(job.Status),
		job.Phase,
		job.Subject,
		job.Progress,
		job.HeartbeatAgeSeconds,
		job.ThroughputPerMin,
		job.ETASeconds,
		job.CanRetry,
		job.ErrorLog,
		job.StartedAt,
		job.CompletedAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", job.ID, apperrors.MapDBError(err))
	}
	return nil
}

// GetByID retrieves one mirrored job.
func (r *JobMirrorRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var out model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(jobColumns, ", ")+`
			FROM jobs WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List retrieves mirrored jobs with pagination, filtering, and sorting.
func (r *JobMirrorRepo) List(ctx context.Context, opts *model.JobListOptions) ([]*model.Job, error) {
	if opts == nil {
		opts = &model.JobListOptions{}
	}

	var conds []database.Condition
	if opts.Status != nil {
		conds = append(conds, database.WhereCond("status", database.Equal, string(*opts.Status)))
	}
	if opts.Type != nil {
		conds = append(conds, database.WhereCond("type", database.Equal, string(*opts.Type)))
	}
	if opts.Subject != nil && *opts.Subject != "" {
		conds = append(conds, database.WhereCond("subject", database.Equal, *opts.Subject))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("jobs",
		database.WithColumns(jobColumns...),
		database.WithConditions(conds...),
		database.WithOrderBy(
			allowedSort(opts.SortBy, "created_at", "status", "type"),
			allowedDir(opts.SortOrder),
		),
		database.WithLimit(normalizeLimit(opts.Limit)),
		database.WithOffset(normalizeOffset(opts.Offset)),
	))

	var jobs []model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		jobs, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Job])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list jobs: %w", apperrors.MapDBError(err))
	}
	return toPointers(jobs), nil
}

// ListBySubject returns the job history of one subject, newest first.
func (r *JobMirrorRepo) ListBySubject(ctx context.Context, opts model.JobListBySubjectOptions) ([]*model.Job, error) {
	subject := opts.Subject
	return r.List(ctx, &model.JobListOptions{
		Subject: &subject,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// LatestForSubject returns the most recently created job for one subject.
func (r *JobMirrorRepo) LatestForSubject(ctx context.Context, subject string) (*model.Job, error) {
	var out model.Job
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(jobColumns, ", ")+`
			FROM jobs WHERE subject = $1
			ORDER BY created_at DESC
			LIMIT 1
		`, subject)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Stats returns per-status job counts across the mirror.
func (r *JobMirrorRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM jobs GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var stats model.JobStats
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job stats: %w", err)
		}
		switch model.JobStatus(status) {
		case model.JobStatusQueued:
			stats.Queued = count
		case model.JobStatusRunning:
			stats.Running = count
		case model.JobStatusPaused:
			stats.Paused = count
		case model.JobStatusSucceeded:
			stats.Succeeded = count
		case model.JobStatusFailed:
			stats.Failed = count
		case model.JobStatusCanceled:
			stats.Canceled = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("job stats rows: %w", err)
	}
	return &stats, nil
}
