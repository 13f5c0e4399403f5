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

// StrategyRepo provides database operations for genetic strategies and their
// backtest runs.
type StrategyRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewStrategyRepo creates a new StrategyRepo with real time provider.
func NewStrategyRepo(db *sql.DB) *StrategyRepo {
	return &StrategyRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewStrategyRepoWithTimeProvider creates a new StrategyRepo with a custom time provider (useful for tests).
func NewStrategyRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *StrategyRepo {
	return &StrategyRepo{DB: db, timeProvider: tp}
}

var strategyColumns = []string{
	"id", "name", "generation", "genome", "fitness", "archived", "created_at", "updated_at",
}

var backtestRunColumns = []string{
	"id", "strategy_id", "job_id", "status", "summary", "started_at", "finished_at",
}

// GetByID retrieves a strategy by ID.
func (r *StrategyRepo) GetByID(ctx context.Context, id string) (*model.Strategy, error) {
	var out model.Strategy
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(strategyColumns, ", ")+`
			FROM strategies WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Strategy])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List retrieves strategies with pagination and filters.
func (r *StrategyRepo) List(ctx context.Context, opts model.StrategiesListOptions) ([]*model.Strategy, error) {
	var conds []database.Condition
	if opts.Archived != nil {
		conds = append(conds, database.WhereCond("archived", database.Equal, *opts.Archived))
	}

	query, args := database.BuildListQuery(database.NewListQueryOptions("strategies",
		database.WithColumns(strategyColumns...),
		database.WithConditions(conds...),
		database.WithOrderBy("updated_at", "DESC"),
		database.WithLimit(normalizeLimit(opts.Limit)),
		database.WithOffset(normalizeOffset(opts.Offset)),
	))

	var strategies []model.Strategy
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		strategies, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Strategy])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list strategies: %w", apperrors.MapDBError(err))
	}
	return toPointers(strategies), nil
}

// InsertRun records a backtest run linked to an authority job.
func (r *StrategyRepo) InsertRun(ctx context.Context, run *model.BacktestRun) (*model.BacktestRun, error) {
	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = r.timeProvider.Now().UTC()
	}

	var out model.BacktestRun
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO backtest_runs (strategy_id, job_id, status, started_at)
			VALUES ($1, $2, $3, $4)
			RETURNING `+strings.Join(backtestRunColumns, ", ")+`
		`, run.StrategyID, run.JobID, string(run.Status), startedAt)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BacktestRun])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// GetRunByJobID retrieves the run tracking one authority job.
func (r *StrategyRepo) GetRunByJobID(ctx context.Context, jobID string) (*model.BacktestRun, error) {
	var out model.BacktestRun
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(backtestRunColumns, ", ")+`
			FROM backtest_runs WHERE job_id = $1
		`, jobID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BacktestRun])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// FinishRun stamps a run's terminal status and summary, keyed by job ID.
func (r *StrategyRepo) FinishRun(ctx context.Context, params core.FinishBacktestRunParams) (*model.BacktestRun, error) {
	var out model.BacktestRun
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE backtest_runs
			SET status = $2, summary = $3, finished_at = $4
			WHERE job_id = $1
			RETURNING `+strings.Join(backtestRunColumns, ", ")+`
		`, params.JobID, string(params.Status), params.Summary, r.timeProvider.Now().UTC())
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.BacktestRun])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// ListRuns returns the most recent runs for one strategy.
func (r *StrategyRepo) ListRuns(ctx context.Context, strategyID string, limit int) ([]*model.BacktestRun, error) {
	if limit < 1 {
		limit = 20
	}

	var runs []model.BacktestRun
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(backtestRunColumns, ", ")+`
			FROM backtest_runs WHERE strategy_id = $1
			ORDER BY started_at DESC
			LIMIT $2
		`, strategyID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		runs, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.BacktestRun])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list backtest runs: %w", apperrors.MapDBError(err))
	}
	return toPointers(runs), nil
}
