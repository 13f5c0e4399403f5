package data

import (
	"context"
	"fmt"

	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// FailStaleJobs marks non-terminal mirror rows that have not been refreshed
// within params.MaxAge as failed, appending a note to their error log. The
// batch is bounded by params.BatchSize so a backlog never takes long locks.
func (r *JobMirrorRepo) FailStaleJobs(ctx context.Context, params core.FailStaleJobsParams) (int64, error) {
	now := r.timeProvider.Now().UTC()
	cutoff := now.Add(-params.MaxAge)

	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET
			status = $1,
			error_log = error_log || jsonb_build_array(jsonb_build_object(
				'timestamp', to_char($2::timestamptz, 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
				'message', 'mirror entry marked failed: no status refresh since ' ||
					to_char(updated_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
			)),
			completed_at = COALESCE(completed_at, $2),
			updated_at = $2
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status IN ($3, $4, $5) AND updated_at < $6
			ORDER BY updated_at ASC
			LIMIT $7
		)
	`,
		string(model.JobStatusFailed),
		now,
		string(model.JobStatusQueued),
		string(model.JobStatusRunning),
		string(model.JobStatusPaused),
		cutoff,
		normalizeBatchSize(params.BatchSize),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", apperrors.MapDBError(err))
	}
	return res.RowsAffected()
}

// DeleteOldJobs removes mirror rows with the given status whose last update
// is older than params.MaxAge, up to params.BatchSize rows per call.
func (r *JobMirrorRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	cutoff := r.timeProvider.Now().UTC().Add(-params.MaxAge)

	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM jobs WHERE id IN (
			SELECT id FROM jobs
			WHERE status = $1 AND updated_at < $2
			ORDER BY updated_at ASC
			LIMIT $3
		)
	`, string(params.Status), cutoff, normalizeBatchSize(params.BatchSize))
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: %w", apperrors.MapDBError(err))
	}
	return res.RowsAffected()
}
