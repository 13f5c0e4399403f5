package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
	"github.com/sportwire/ingest-admin/internal/testutil"
)

// insertTestLeague seeds a league row directly; the repo intentionally has no
// Create since leagues arrive through ingestion, not the admin API.
func insertTestLeague(t *testing.T, db *sql.DB, name, externalKey string, mode model.IngestMode) string {
	t.Helper()

	var id string
	err := db.QueryRowContext(context.Background(), `
		INSERT INTO leagues (name, country, sport, external_key, ingest_mode, tier)
		VALUES ($1, 'England', 'football', $2, $3, 1)
		RETURNING id
	`, name, externalKey, string(mode)).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertTestSeason(t *testing.T, db *sql.DB, leagueID, label string, current bool) string {
	t.Helper()

	start := testutil.TestTime()
	var id string
	err := db.QueryRowContext(context.Background(), `
		INSERT INTO seasons (league_id, label, start_date, end_date, current)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, leagueID, label, start, start.AddDate(0, 10, 0), current).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestLeagueRepo_Integration_GetByID(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewLeagueRepo(db)
		ctx := context.Background()

		id := insertTestLeague(t, db, "Premier League", "ext-premier", model.IngestModeActive)

		league, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Premier League", league.Name)
		assert.Equal(t, model.IngestModeActive, league.IngestMode)
		assert.Equal(t, 1, league.Tier)

		_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestLeagueRepo_Integration_ListFilters(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewLeagueRepo(db)
		ctx := context.Background()

		insertTestLeague(t, db, "Premier League", "ext-lf-1", model.IngestModeActive)
		insertTestLeague(t, db, "Championship", "ext-lf-2", model.IngestModeActive)
		insertTestLeague(t, db, "League One", "ext-lf-3", model.IngestModePaused)

		leagues, err := repo.List(ctx, model.LeaguesListOptions{})
		require.NoError(t, err)
		assert.Len(t, leagues, 3)

		leagues, err = repo.List(ctx, model.LeaguesListOptions{Q: testutil.StringPtr("premier")})
		require.NoError(t, err)
		require.Len(t, leagues, 1)
		assert.Equal(t, "Premier League", leagues[0].Name)

		paused := model.IngestModePaused
		leagues, err = repo.List(ctx, model.LeaguesListOptions{IngestMode: &paused})
		require.NoError(t, err)
		require.Len(t, leagues, 1)
		assert.Equal(t, "League One", leagues[0].Name)
	})
}

func TestLeagueRepo_Integration_UpdatePatch(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewLeagueRepo(db)
		ctx := context.Background()

		id := insertTestLeague(t, db, "Serie A", "ext-update-1", model.IngestModeActive)

		paused := model.IngestModePaused
		updated, err := repo.Update(ctx, id, model.LeaguePatch{
			Tier:       testutil.IntPtr(2),
			IngestMode: &paused,
		})
		require.NoError(t, err)
		assert.Equal(t, "Serie A", updated.Name, "unpatched fields keep their value")
		assert.Equal(t, 2, updated.Tier)
		assert.Equal(t, model.IngestModePaused, updated.IngestMode)

		_, err = repo.Update(ctx, "00000000-0000-0000-0000-000000000000", model.LeaguePatch{Tier: testutil.IntPtr(3)})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestLeagueRepo_Integration_MetricsSyncDue(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		now := testutil.TestTime()
		repo := NewLeagueRepoWithTimeProvider(db, NewFixedTimeProvider(now))

		neverSynced := insertTestLeague(t, db, "Never Synced", "ext-due-1", model.IngestModeActive)
		staleSynced := insertTestLeague(t, db, "Stale Synced", "ext-due-2", model.IngestModeActive)
		freshSynced := insertTestLeague(t, db, "Fresh Synced", "ext-due-3", model.IngestModeActive)
		pausedLeague := insertTestLeague(t, db, "Paused League", "ext-due-4", model.IngestModePaused)

		require.NoError(t, repo.MarkMetricsSync(ctx, staleSynced, now.Add(-48*time.Hour)))
		require.NoError(t, repo.MarkMetricsSync(ctx, freshSynced, now.Add(-time.Hour)))
		require.NoError(t, repo.MarkMetricsSync(ctx, pausedLeague, now.Add(-48*time.Hour)))

		due, err := repo.ListDueForMetricsSync(ctx, 24*time.Hour, 10)
		require.NoError(t, err)
		require.Len(t, due, 2)
		// Never-synced leagues sort ahead of stale ones.
		assert.Equal(t, neverSynced, due[0].ID)
		assert.Equal(t, staleSynced, due[1].ID)
	})
}

func TestLeagueRepo_Integration_CurrentSeason(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewLeagueRepo(db)
		ctx := context.Background()

		leagueID := insertTestLeague(t, db, "La Liga", "ext-season-1", model.IngestModeActive)
		insertTestSeason(t, db, leagueID, "2024-25", false)
		currentID := insertTestSeason(t, db, leagueID, "2025-26", true)

		season, err := repo.CurrentSeason(ctx, leagueID)
		require.NoError(t, err)
		assert.Equal(t, currentID, season.ID)
		assert.Equal(t, "2025-26", season.Label)
		assert.Equal(t, "season:"+currentID, season.SubjectKey())

		emptyLeague := insertTestLeague(t, db, "Bundesliga", "ext-season-2", model.IngestModeActive)
		_, err = repo.CurrentSeason(ctx, emptyLeague)
		assert.True(t, apperrors.IsNotFound(err))
	})
}
