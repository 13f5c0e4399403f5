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

// TeamRepo provides database operations for teams, aliases, and the
// unmapped-name review queue.
type TeamRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewTeamRepo creates a new TeamRepo with real time provider.
func NewTeamRepo(db *sql.DB) *TeamRepo {
	return &TeamRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewTeamRepoWithTimeProvider creates a new TeamRepo with a custom time provider (useful for tests).
func NewTeamRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *TeamRepo {
	return &TeamRepo{DB: db, timeProvider: tp}
}

var teamColumns = []string{
	"id", "league_id", "name", "short_name", "external_key", "normalized_key",
	"created_at", "updated_at",
}

// GetByID retrieves a team by ID.
func (r *TeamRepo) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var out model.Team
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(teamColumns, ", ")+`
			FROM teams WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Team])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List retrieves teams with pagination, filtering, and sorting.
func (r *TeamRepo) List(ctx context.Context, opts model.TeamsListOptions) ([]*model.Team, error) {
	var conds []database.Condition
	if opts.Q != nil && *opts.Q != "" {
		conds = append(conds, database.WhereCond("name", database.ILike, "%"+*opts.Q+"%"))
	}
	if opts.LeagueID != nil && *opts.LeagueID != "" {
		conds = append(conds, database.WhereCond("league_id", database.Equal, *opts.LeagueID))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("teams",
		database.WithColumns(teamColumns...),
		database.WithConditions(conds...),
		database.WithOrderBy(allowedSort(opts.Sort, "created_at", "name"), allowedDir(opts.Dir)),
		database.WithLimit(normalizeLimit(opts.Limit)),
		database.WithOffset(normalizeOffset(opts.Offset)),
	))

	var teams []model.Team
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		teams, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Team])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list teams: %w", apperrors.MapDBError(err))
	}
	return toPointers(teams), nil
}

// ListByLeague returns every team in one league, for suggestion matching.
func (r *TeamRepo) ListByLeague(ctx context.Context, leagueID string) ([]*model.Team, error) {
	var teams []model.Team
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(teamColumns, ", ")+`
			FROM teams WHERE league_id = $1 ORDER BY name
		`, leagueID)
		if err != nil {
			return err
		}
		defer rows.Close()
		teams, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Team])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list league teams: %w", apperrors.MapDBError(err))
	}
	return toPointers(teams), nil
}

// Update applies a patch to a team, bumping updated_at.
func (r *TeamRepo) Update(ctx context.Context, id string, patch model.TeamPatch) (*model.Team, error) {
	var out model.Team
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE teams SET
				name = COALESCE($2, name),
				short_name = COALESCE($3, short_name),
				updated_at = $4
			WHERE id = $1
			RETURNING `+strings.Join(teamColumns, ", ")+`
		`, id, patch.Name, patch.ShortName, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Team])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// AddAlias persists an alias mapping. A duplicate (provider, alias) pair maps
// to a Conflict error.
func (r *TeamRepo) AddAlias(ctx context.Context, alias *model.TeamAlias) (*model.TeamAlias, error) {
	var out model.TeamAlias
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO team_aliases (team_id, alias, provider, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, team_id, alias, provider, created_at
		`, alias.TeamID, alias.Alias, alias.Provider, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.TeamAlias])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// ListAliases returns the alias mappings for one team, newest first.
func (r *TeamRepo) ListAliases(ctx context.Context, teamID string) ([]*model.TeamAlias, error) {
	var aliases []model.TeamAlias
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, team_id, alias, provider, created_at
			FROM team_aliases WHERE team_id = $1 ORDER BY created_at DESC
		`, teamID)
		if err != nil {
			return err
		}
		defer rows.Close()
		aliases, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.TeamAlias])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list aliases: %w", apperrors.MapDBError(err))
	}
	return toPointers(aliases), nil
}

// ListUnmapped returns unresolved provider names for one league, most seen first.
func (r *TeamRepo) ListUnmapped(ctx context.Context, leagueID string, limit int) ([]*model.UnmappedName, error) {
	if limit < 1 {
		limit = defaultListLimit
	}

	var names []model.UnmappedName
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT name, provider, league_id, first_seen, seen_count
			FROM unmapped_names WHERE league_id = $1
			ORDER BY seen_count DESC, first_seen ASC
			LIMIT $2
		`, leagueID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		names, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.UnmappedName])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list unmapped names: %w", apperrors.MapDBError(err))
	}
	return toPointers(names), nil
}

// DeleteUnmapped removes one name from the unmapped queue. Returns false
// when no row matched.
func (r *TeamRepo) DeleteUnmapped(ctx context.Context, provider, name string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM unmapped_names WHERE provider = $1 AND name = $2
	`, provider, name)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
