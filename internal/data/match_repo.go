package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sportwire/ingest-admin/internal/data/pgxutil"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// MatchRepo provides read access to ingested fixtures. Writes happen on the
// ingest side; the admin service only inspects them.
type MatchRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewMatchRepo creates a new MatchRepo with real time provider.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewMatchRepoWithTimeProvider creates a new MatchRepo with a custom time provider (useful for tests).
func NewMatchRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *MatchRepo {
	return &MatchRepo{DB: db, timeProvider: tp}
}

var matchColumns = []string{
	"id", "season_id", "league_id", "home_team_id", "away_team_id",
	"referee_id", "kickoff_at", "provider", "created_at",
}

// GetByID retrieves a match by ID.
func (r *MatchRepo) GetByID(ctx context.Context, id string) (*model.Match, error) {
	var out model.Match
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(matchColumns, ", ")+`
			FROM matches WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Match])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// ListRecent returns fixtures with kickoff inside [now-window, now+window],
// the candidate set for duplicate detection.
func (r *MatchRepo) ListRecent(ctx context.Context, leagueID string, window time.Duration) ([]*model.Match, error) {
	now := r.timeProvider.Now().UTC()

	var matches []model.Match
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+strings.Join(matchColumns, ", ")+`
			FROM matches
			WHERE league_id = $1 AND kickoff_at BETWEEN $2 AND $3
			ORDER BY kickoff_at
		`, leagueID, now.Add(-window), now.Add(window))
		if err != nil {
			return err
		}
		defer rows.Close()
		matches, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Match])
		return err
	}); err != nil {
		return nil, fmt.Errorf("list recent fixtures: %w", apperrors.MapDBError(err))
	}
	return toPointers(matches), nil
}
