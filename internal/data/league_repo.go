package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sportwire/ingest-admin/internal/data/database"
	"github.com/sportwire/ingest-admin/internal/data/pgxutil"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// LeagueRepo provides database operations for leagues and their seasons.
type LeagueRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewLeagueRepo creates a new LeagueRepo with real time provider.
func NewLeagueRepo(db *sql.DB) *LeagueRepo {
	return &LeagueRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewLeagueRepoWithTimeProvider creates a new LeagueRepo with a custom time provider (useful for tests).
func NewLeagueRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *LeagueRepo {
	return &LeagueRepo{DB: db, timeProvider: tp}
}

var leagueColumns = []string{
	"id", "name", "country", "sport", "external_key", "ingest_mode", "tier",
	"last_deep_ingest", "last_metrics_sync", "created_at", "updated_at",
}

// GetByID retrieves a league by ID.
func (r *LeagueRepo) GetByID(ctx context.Context, id string) (*model.League, error) {
	var out model.League
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(leagueColumns, ", ")+`
			FROM leagues WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.League])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List retrieves leagues with pagination, filtering, and sorting.
func (r *LeagueRepo) List(ctx context.Context, opts model.LeaguesListOptions) ([]*model.League, error) {
	var conds []database.Condition
	if opts.Q != nil && *opts.Q != "" {
		conds = append(conds, database.WhereCond("name", database.ILike, "%"+*opts.Q+"%"))
	}
	if opts.Sport != nil && *opts.Sport != "" {
		conds = append(conds, database.WhereCond("sport", database.Equal, *opts.Sport))
	}
	if opts.IngestMode != nil {
		conds = append(conds, database.WhereCond("ingest_mode", database.Equal, string(*opts.IngestMode)))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("leagues",
		database.WithColumns(leagueColumns...),
		database.WithConditions(conds...),
		database.WithOrderBy(
			allowedSort(opts.Sort, "created_at", "name", "tier"),
			allowedDir(opts.Dir),
		),
		database.WithLimit(normalizeLimit(opts.Limit)),
		database.WithOffset(normalizeOffset(opts.Offset)),
	))

	var leagues []model.League
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		leagues, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.League])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list leagues: %w", apperrors.MapDBError(err))
	}
	return toPointers(leagues), nil
}

// Update applies a patch to a league, bumping updated_at.
func (r *LeagueRepo) Update(ctx context.Context, id string, patch model.LeaguePatch) (*model.League, error) {
	var out model.League
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE leagues SET
				name = COALESCE($2, name),
				tier = COALESCE($3, tier),
				ingest_mode = COALESCE($4, ingest_mode),
				updated_at = $5
			WHERE id = $1
			RETURNING `+strings.Join(leagueColumns, ", ")+`
		`, id, patch.Name, patch.Tier, (*string)(patch.IngestMode), r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.League])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// MarkDeepIngest stamps the league's last deep-ingest completion time.
func (r *LeagueRepo) MarkDeepIngest(ctx context.Context, id string, at time.Time) error {
	return r.stamp(ctx, "last_deep_ingest", id, at)
}

// MarkMetricsSync stamps the league's last metrics-sync completion time.
func (r *LeagueRepo) MarkMetricsSync(ctx context.Context, id string, at time.Time) error {
	return r.stamp(ctx, "last_metrics_sync", id, at)
}

func (r *LeagueRepo) stamp(ctx context.Context, column, id string, at time.Time) error {
	// column is one of two internal constants, never caller input.
	res, err := r.DB.ExecContext(ctx, `
		UPDATE leagues SET `+column+` = $2, updated_at = $3 WHERE id = $1
	`, id, at.UTC(), r.timeProvider.Now().UTC())
	if err != nil {
		return apperrors.MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NotFoundf("league %s not found", id)
	}
	return nil
}

// ListDueForMetricsSync returns active leagues whose last metrics sync is
// older than olderThan (or has never happened), oldest first.
func (r *LeagueRepo) ListDueForMetricsSync(ctx context.Context, olderThan time.Duration, limit int) ([]*model.League, error) {
	if limit < 1 {
		limit = 25
	}
	cutoff := r.timeProvider.Now().UTC().Add(-olderThan)

	var leagues []model.League
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(leagueColumns, ", ")+`
			FROM leagues
			WHERE ingest_mode = 'active'
			  AND (last_metrics_sync IS NULL OR last_metrics_sync < $1)
			ORDER BY last_metrics_sync ASC NULLS FIRST
			LIMIT $2
		`, cutoff, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		leagues, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.League])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list due leagues: %w", apperrors.MapDBError(err))
	}
	return toPointers(leagues), nil
}

// CurrentSeason returns the league's season marked current.
func (r *LeagueRepo) CurrentSeason(ctx context.Context, leagueID string) (*model.Season, error) {
	var out model.Season
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, league_id, label, start_date, end_date, current, created_at
			FROM seasons WHERE league_id = $1 AND current
		`, leagueID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Season])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}
