package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/data/database"
	"github.com/sportwire/ingest-admin/internal/data/pgxutil"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// DuplicateRepo provides database operations for the duplicate review queue.
type DuplicateRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewDuplicateRepo creates a new DuplicateRepo with real time provider.
func NewDuplicateRepo(db *sql.DB) *DuplicateRepo {
	return &DuplicateRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewDuplicateRepoWithTimeProvider creates a new DuplicateRepo with a custom time provider (useful for tests).
func NewDuplicateRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *DuplicateRepo {
	return &DuplicateRepo{DB: db, timeProvider: tp}
}

var duplicateColumns = []string{
	"id", "match_id", "other_id", "confidence", "reason", "status",
	"resolved_by", "resolved_at", "created_at",
}

// GetByID retrieves a duplicate pair by ID.
func (r *DuplicateRepo) GetByID(ctx context.Context, id string) (*model.MatchDuplicate, error) {
	var out model.MatchDuplicate
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(duplicateColumns, ", ")+`
			FROM match_duplicates WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.MatchDuplicate])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List retrieves duplicate pairs with pagination and filters, newest first.
func (r *DuplicateRepo) List(ctx context.Context, opts model.DuplicatesListOptions) ([]*model.MatchDuplicate, error) {
	var conds []database.Condition
	if opts.Status != nil {
		conds = append(conds, database.WhereCond("status", database.Equal, string(*opts.Status)))
	}
	if opts.MinConfidence != nil {
		conds = append(conds, database.WhereCond("confidence", database.GreaterThanOrEqual, *opts.MinConfidence))
	}
	if opts.LeagueID != nil && *opts.LeagueID != "" {
		conds = append(conds, database.WhereRawCond(
			"match_id IN (SELECT id FROM matches WHERE league_id = $1)", *opts.LeagueID))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("match_duplicates",
		database.WithColumns(duplicateColumns...),
		database.WithConditions(conds...),
		database.WithOrderBy("created_at", "DESC"),
		database.WithLimit(normalizeLimit(opts.Limit)),
		database.WithOffset(normalizeOffset(opts.Offset)),
	))

	var dups []model.MatchDuplicate
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		dups, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.MatchDuplicate])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list duplicates: %w", apperrors.MapDBError(err))
	}
	return toPointers(dups), nil
}

// Insert records a candidate duplicate pair. A pair already recorded maps to
// a Conflict error via the unique (match_id, other_id) constraint.
func (r *DuplicateRepo) Insert(ctx context.Context, dup *model.MatchDuplicate) (*model.MatchDuplicate, error) {
	status := dup.Status
	if status == "" {
		status = model.DuplicateStatusOpen
	}

	var out model.MatchDuplicate
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO match_duplicates (match_id, other_id, confidence, reason, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+strings.Join(duplicateColumns, ", ")+`
		`, dup.MatchID, dup.OtherID, dup.Confidence, dup.Reason, status, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.MatchDuplicate])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Resolve transitions an open pair to merged or dismissed. Only open rows
// match, so a concurrent double-resolve surfaces as NotFound.
func (r *DuplicateRepo) Resolve(ctx context.Context, params core.ResolveDuplicateParams) (*model.MatchDuplicate, error) {
	var out model.MatchDuplicate
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE match_duplicates
			SET status = $2, resolved_by = $3, resolved_at = $4
			WHERE id = $1 AND status = 'open'
			RETURNING `+strings.Join(duplicateColumns, ", ")+`
		`, params.ID, string(params.Status), params.ResolvedBy, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.MatchDuplicate])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}
