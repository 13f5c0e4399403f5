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

// OddsRepo provides database operations for recorded odds anomalies.
type OddsRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewOddsRepo creates a new OddsRepo with real time provider.
func NewOddsRepo(db *sql.DB) *OddsRepo {
	return &OddsRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewOddsRepoWithTimeProvider creates a new OddsRepo with a custom time provider (useful for tests).
func NewOddsRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *OddsRepo {
	return &OddsRepo{DB: db, timeProvider: tp}
}

var anomalyColumns = []string{
	"id", "match_id", "league_id", "bookmaker", "bookmaker_domain", "market",
	"rule", "severity", "observed", "detail", "observed_at", "created_at",
}

// InsertAnomaly records one fired anomaly.
func (r *OddsRepo) InsertAnomaly(ctx context.Context, anomaly *model.OddsAnomaly) (*model.OddsAnomaly, error) {
	observedAt := anomaly.ObservedAt
	if observedAt.IsZero() {
		observedAt = r.timeProvider.Now().UTC()
	}

	var out model.OddsAnomaly
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO odds_anomalies (
				match_id, league_id, bookmaker, bookmaker_domain, market,
				rule, severity, observed, detail, observed_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING `+strings.Join(anomalyColumns, ", ")+`
		`,
			anomaly.MatchID,
			anomaly.LeagueID,
			anomaly.Bookmaker,
			anomaly.BookmakerDomain,
			anomaly.Market,
			anomaly.Rule,
			string(anomaly.Severity),
			[]byte(anomaly.Observed),
			anomaly.Detail,
			observedAt,
			r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.OddsAnomaly])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// ListAnomalies retrieves anomalies with pagination, filtering, and sorting.
func (r *OddsRepo) ListAnomalies(ctx context.Context, opts model.AnomaliesListOptions) ([]*model.OddsAnomaly, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions("odds_anomalies",
		database.WithColumns(anomalyColumns...),
		database.WithConditions(anomalyConditions(opts)...),
		database.WithOrderBy(
			allowedSort(opts.Sort, "observed_at", "severity"),
			allowedDir(opts.Dir),
		),
		database.WithLimit(normalizeLimit(opts.Limit)),
		database.WithOffset(normalizeOffset(opts.Offset)),
	))

	var anomalies []model.OddsAnomaly
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		anomalies, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.OddsAnomaly])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list anomalies: %w", apperrors.MapDBError(err))
	}
	return toPointers(anomalies), nil
}

// CountAnomalies returns the number of anomalies matching the filters.
func (r *OddsRepo) CountAnomalies(ctx context.Context, opts model.AnomaliesListOptions) (int, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions("odds_anomalies",
		database.WithCountOnly(),
		database.WithConditions(anomalyConditions(opts)...),
	))

	var count int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count anomalies: %w", apperrors.MapDBError(err))
	}
	return count, nil
}

func anomalyConditions(opts model.AnomaliesListOptions) []database.Condition {
	var conds []database.Condition
	if opts.LeagueID != nil && *opts.LeagueID != "" {
		conds = append(conds, database.WhereCond("league_id", database.Equal, *opts.LeagueID))
	}
	if opts.Bookmaker != nil && *opts.Bookmaker != "" {
		conds = append(conds, database.WhereCond("bookmaker", database.Equal, *opts.Bookmaker))
	}
	if opts.Severity != nil {
		conds = append(conds, database.WhereCond("severity", database.Equal, string(*opts.Severity)))
	}
	if opts.Since != nil {
		conds = append(conds, database.WhereCond("observed_at", database.GreaterThanOrEqual, *opts.Since))
	}
	return conds
}
