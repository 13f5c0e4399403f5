package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sportwire/ingest-admin/internal/data/database"
	"github.com/sportwire/ingest-admin/internal/data/pgxutil"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// AuditRepo provides database operations for the admin audit log.
type AuditRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAuditRepo creates a new AuditRepo with real time provider.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewAuditRepoWithTimeProvider creates a new AuditRepo with a custom time provider (useful for tests).
func NewAuditRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *AuditRepo {
	return &AuditRepo{DB: db, timeProvider: tp}
}

var auditColumns = []string{
	"id", "actor", "action", "entity_type", "entity_id", "detail", "created_at",
}

// Insert appends one audit entry. Entries are immutable once written.
func (r *AuditRepo) Insert(ctx context.Context, entry *model.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return apperrors.Validation(err.Error())
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO audit_log (actor, action, entity_type, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.Actor, entry.Action, entry.EntityType, entry.EntityID,
		[]byte(entry.Detail), r.timeProvider.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", apperrors.MapDBError(err))
	}
	return nil
}

// List retrieves audit entries with pagination and filters, newest first.
func (r *AuditRepo) List(ctx context.Context, opts model.AuditListOptions) ([]*model.AuditEntry, error) {
	var conds []database.Condition
	if opts.Actor != nil && *opts.Actor != "" {
		conds = append(conds, database.WhereCond("actor", database.Equal, *opts.Actor))
	}
	if opts.EntityType != nil && *opts.EntityType != "" {
		conds = append(conds, database.WhereCond("entity_type", database.Equal, *opts.EntityType))
	}
	if opts.EntityID != nil && *opts.EntityID != "" {
		conds = append(conds, database.WhereCond("entity_id", database.Equal, *opts.EntityID))
	}
	if opts.Since != nil {
		conds = append(conds, database.WhereCond("created_at", database.GreaterThanOrEqual, *opts.Since))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("audit_log",
		database.WithColumns(auditColumns...),
		database.WithConditions(conds...),
		database.WithOrderBy("created_at", "DESC"),
		database.WithLimit(normalizeLimit(opts.Limit)),
		database.WithOffset(normalizeOffset(opts.Offset)),
	))

	var entries []model.AuditEntry
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		entries, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.AuditEntry])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", apperrors.MapDBError(err))
	}
	return toPointers(entries), nil
}

// DeleteOld removes audit entries older than maxAge, at most batchSize per
// call. Returns the number of entries deleted.
func (r *AuditRepo) DeleteOld(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	cutoff := r.timeProvider.Now().UTC().Add(-maxAge)

	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM audit_log WHERE id IN (
			SELECT id FROM audit_log WHERE created_at < $1
			ORDER BY created_at LIMIT $2
		)
	`, cutoff, normalizeBatchSize(batchSize))
	if err != nil {
		return 0, fmt.Errorf("prune audit log: %w", apperrors.MapDBError(err))
	}
	return res.RowsAffected()
}
