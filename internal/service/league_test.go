package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// stubJobStarter records start requests and returns a scripted job.
type stubJobStarter struct {
	mu       sync.Mutex
	requests []*model.StartJobRequest
	actors   []string
	job      *model.Job
	err      error
}

func (s *stubJobStarter) Start(_ context.Context, actor string, req *model.StartJobRequest) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	s.actors = append(s.actors, actor)
	if s.err != nil {
		return nil, s.err
	}
	if s.job != nil {
		return s.job, nil
	}
	return &model.Job{
		ID:      "job-1",
		Type:    req.Type,
		Status:  model.JobStatusQueued,
		Subject: req.Subject,
	}, nil
}

type stubLeagueRepo struct {
	mu sync.Mutex

	leagues map[string]*model.League
	season  *model.Season

	due         []*model.League
	dueErr      error
	seasonErr   error
	updateErr   error
	syncStamps  map[string]time.Time
	updateCalls []model.LeaguePatch
}

func newStubLeagueRepo(leagues ...*model.League) *stubLeagueRepo {
	r := &stubLeagueRepo{
		leagues:    make(map[string]*model.League),
		syncStamps: make(map[string]time.Time),
	}
	for _, l := range leagues {
		r.leagues[l.ID] = l
	}
	return r
}

func (r *stubLeagueRepo) GetByID(_ context.Context, id string) (*model.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	league, ok := r.leagues[id]
	if !ok {
		return nil, apperrors.NotFoundf("league %s not found", id)
	}
	return league, nil
}

func (r *stubLeagueRepo) List(_ context.Context, _ model.LeaguesListOptions) ([]*model.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.League, 0, len(r.leagues))
	for _, l := range r.leagues {
		out = append(out, l)
	}
	return out, nil
}

func (r *stubLeagueRepo) Update(_ context.Context, id string, patch model.LeaguePatch) (*model.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls = append(r.updateCalls, patch)
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	league, ok := r.leagues[id]
	if !ok {
		return nil, apperrors.NotFoundf("league %s not found", id)
	}
	if patch.Name != nil {
		league.Name = *patch.Name
	}
	if patch.Tier != nil {
		league.Tier = *patch.Tier
	}
	if patch.IngestMode != nil {
		league.IngestMode = *patch.IngestMode
	}
	return league, nil
}

func (r *stubLeagueRepo) MarkDeepIngest(_ context.Context, id string, at time.Time) error {
	return nil
}

func (r *stubLeagueRepo) MarkMetricsSync(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncStamps[id] = at
	return nil
}

func (r *stubLeagueRepo) ListDueForMetricsSync(_ context.Context, _ time.Duration, _ int) ([]*model.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dueErr != nil {
		return nil, r.dueErr
	}
	return r.due, nil
}

func (r *stubLeagueRepo) CurrentSeason(_ context.Context, leagueID string) (*model.Season, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seasonErr != nil {
		return nil, r.seasonErr
	}
	if r.season == nil {
		return nil, apperrors.NotFoundf("no current season for league %s", leagueID)
	}
	return r.season, nil
}

func activeLeague() *model.League {
	return &model.League{
		ID:          "lg-1",
		Name:        "Premier League",
		Sport:       "football",
		ExternalKey: "ext-pl",
		IngestMode:  model.IngestModeActive,
		Tier:        1,
	}
}

func TestNewLeagueService_RequiresDependencies(t *testing.T) {
	_, err := NewLeagueService(LeagueServiceOptions{})
	require.Error(t, err)

	_, err = NewLeagueService(LeagueServiceOptions{Repo: newStubLeagueRepo()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job starter")
}

func TestLeagueUpdate(t *testing.T) {
	repo := newStubLeagueRepo(activeLeague())
	audit := &stubAudit{}
	svc, err := NewLeagueService(LeagueServiceOptions{Repo: repo, Jobs: &stubJobStarter{}, Audit: audit})
	require.NoError(t, err)

	tier := 2
	league, err := svc.Update(context.Background(), UpdateLeagueParams{
		ID:    "lg-1",
		Actor: "admin@example.com",
		Patch: model.LeaguePatch{Tier: &tier},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, league.Tier)
	assert.Equal(t, []string{"league.update"}, audit.actions())
}

func TestLeagueUpdate_Validation(t *testing.T) {
	svc, err := NewLeagueService(LeagueServiceOptions{Repo: newStubLeagueRepo(), Jobs: &stubJobStarter{}})
	require.NoError(t, err)

	badMode := model.IngestMode("turbo")
	_, err = svc.Update(context.Background(), UpdateLeagueParams{
		ID:    "lg-1",
		Patch: model.LeaguePatch{IngestMode: &badMode},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	badTier := 0
	_, err = svc.Update(context.Background(), UpdateLeagueParams{
		ID:    "lg-1",
		Patch: model.LeaguePatch{Tier: &badTier},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestStartDeepIngest(t *testing.T) {
	repo := newStubLeagueRepo(activeLeague())
	repo.season = &model.Season{ID: "ssn-1", LeagueID: "lg-1", Label: "2025/26", Current: true}
	starter := &stubJobStarter{}

	svc, err := NewLeagueService(LeagueServiceOptions{Repo: repo, Jobs: starter})
	require.NoError(t, err)

	job, err := svc.StartDeepIngest(context.Background(), "ops@example.com", "lg-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)

	require.Len(t, starter.requests, 1)
	req := starter.requests[0]
	assert.Equal(t, model.JobTypeDeepIngest, req.Type)
	assert.Equal(t, "season:ssn-1", req.Subject)
	assert.Contains(t, string(req.Payload), `"season_id":"ssn-1"`)
	assert.Contains(t, string(req.Payload), `"external_key":"ext-pl"`)
	assert.Equal(t, []string{"ops@example.com"}, starter.actors)
}

func TestStartDeepIngest_PausedLeague(t *testing.T) {
	league := activeLeague()
	league.IngestMode = model.IngestModePaused
	repo := newStubLeagueRepo(league)
	starter := &stubJobStarter{}

	svc, err := NewLeagueService(LeagueServiceOptions{Repo: repo, Jobs: starter})
	require.NoError(t, err)

	_, err = svc.StartDeepIngest(context.Background(), "ops@example.com", "lg-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Empty(t, starter.requests)
}

func TestStartDeepIngest_NoCurrentSeason(t *testing.T) {
	repo := newStubLeagueRepo(activeLeague())
	svc, err := NewLeagueService(LeagueServiceOptions{Repo: repo, Jobs: &stubJobStarter{}})
	require.NoError(t, err)

	_, err = svc.StartDeepIngest(context.Background(), "ops@example.com", "lg-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStartDeepIngest_StartErrorPassesThrough(t *testing.T) {
	repo := newStubLeagueRepo(activeLeague())
	repo.season = &model.Season{ID: "ssn-1", LeagueID: "lg-1"}
	wantErr := errors.New("authority down")
	starter := &stubJobStarter{err: wantErr}

	svc, err := NewLeagueService(LeagueServiceOptions{Repo: repo, Jobs: starter})
	require.NoError(t, err)

	_, err = svc.StartDeepIngest(context.Background(), "ops@example.com", "lg-1")
	assert.ErrorIs(t, err, wantErr)
}
