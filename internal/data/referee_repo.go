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

// RefereeRepo provides database operations for referee profiles.
type RefereeRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewRefereeRepo creates a new RefereeRepo with real time provider.
func NewRefereeRepo(db *sql.DB) *RefereeRepo {
	return &RefereeRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewRefereeRepoWithTimeProvider creates a new RefereeRepo with a custom time provider (useful for tests).
func NewRefereeRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *RefereeRepo {
	return &RefereeRepo{DB: db, timeProvider: tp}
}

var refereeColumns = []string{
	"id", "name", "country", "external_key", "matches_officiated",
	"fouls_per_match", "yellows_per_match", "reds_per_match", "penalties_per_match",
	"created_at", "updated_at",
}

// GetByID retrieves a referee by ID.
func (r *RefereeRepo) GetByID(ctx context.Context, id string) (*model.Referee, error) {
	var out model.Referee
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(refereeColumns, ", ")+`
			FROM referees WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Referee])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List retrieves referees with pagination, filtering, and sorting.
func (r *RefereeRepo) List(ctx context.Context, opts model.RefereesListOptions) ([]*model.Referee, error) {
	var conds []database.Condition
	if opts.Q != nil && *opts.Q != "" {
		conds = append(conds, database.WhereCond("name", database.ILike, "%"+*opts.Q+"%"))
	}
	if opts.Country != nil && *opts.Country != "" {
		conds = append(conds, database.WhereCond("country", database.Equal, *opts.Country))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("referees",
		database.WithColumns(refereeColumns...),
		database.WithConditions(conds...),
		database.WithOrderBy(
			allowedSort(opts.Sort, "created_at", "name", "matches_officiated"),
			allowedDir(opts.Dir),
		),
		database.WithLimit(normalizeLimit(opts.Limit)),
		database.WithOffset(normalizeOffset(opts.Offset)),
	))

	var referees []model.Referee
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		referees, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Referee])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list referees: %w", apperrors.MapDBError(err))
	}
	return toPointers(referees), nil
}

// Update applies a patch to a referee, bumping updated_at.
func (r *RefereeRepo) Update(ctx context.Context, id string, patch model.RefereePatch) (*model.Referee, error) {
	var out model.Referee
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE referees SET
				name = COALESCE($2, name),
				country = COALESCE($3, country),
				updated_at = $4
			WHERE id = $1
			RETURNING `+strings.Join(refereeColumns, ", ")+`
		`, id, patch.Name, patch.Country, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Referee])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// LeagueBaseline averages per-match discipline rates across every referee
// that officiated at least one fixture in the league. Referees are weighted
// equally regardless of match count; the strictness index compares officials,
// not appearances.
func (r *RefereeRepo) LeagueBaseline(ctx context.Context, leagueID string) (*model.StrictnessComponents, error) {
	var out model.StrictnessComponents
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			COALESCE(AVG(rf.fouls_per_match), 0),
			COALESCE(AVG(rf.yellows_per_match), 0),
			COALESCE(AVG(rf.reds_per_match), 0),
			COALESCE(AVG(rf.penalties_per_match), 0)
		FROM referees rf
		WHERE rf.id IN (
			SELECT DISTINCT m.referee_id FROM matches m
			WHERE m.league_id = $1 AND m.referee_id IS NOT NULL
		)
	`, leagueID).Scan(&out.Fouls, &out.Yellows, &out.Reds, &out.Penalties)
	if err != nil {
		return nil, fmt.Errorf("league discipline baseline: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}
