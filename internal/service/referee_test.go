package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

type stubRefereeRepo struct {
	referee     *model.Referee
	baseline    *model.StrictnessComponents
	baselineErr error
}

func (r *stubRefereeRepo) GetByID(_ context.Context, id string) (*model.Referee, error) {
	if r.referee == nil || r.referee.ID != id {
		return nil, apperrors.NotFoundf("referee %s not found", id)
	}
	return r.referee, nil
}

func (r *stubRefereeRepo) List(_ context.Context, _ model.RefereesListOptions) ([]*model.Referee, error) {
	if r.referee == nil {
		return nil, nil
	}
	return []*model.Referee{r.referee}, nil
}

func (r *stubRefereeRepo) Update(_ context.Context, id string, patch model.RefereePatch) (*model.Referee, error) {
	referee, err := r.GetByID(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		referee.Name = *patch.Name
	}
	return referee, nil
}

func (r *stubRefereeRepo) LeagueBaseline(_ context.Context, _ string) (*model.StrictnessComponents, error) {
	if r.baselineErr != nil {
		return nil, r.baselineErr
	}
	return r.baseline, nil
}

func TestNewRefereeService_RequiresRepo(t *testing.T) {
	_, err := NewRefereeService(RefereeServiceOptions{})
	require.Error(t, err)
}

func TestStrictness_WeightedComposite(t *testing.T) {
	repo := &stubRefereeRepo{
		referee: &model.Referee{
			ID:                "ref-1",
			Name:              "A. Taylor",
			MatchesOfficiated: 48,
			FoulsPerMatch:     24.0, // 1.2x baseline
			YellowsPerMatch:   4.5,  // 1.5x baseline
			RedsPerMatch:      0.25, // 2.5x baseline
			PenaltiesPerMatch: 0.30, // 1.0x baseline
		},
		baseline: &model.StrictnessComponents{
			Fouls:     20.0,
			Yellows:   3.0,
			Reds:      0.10,
			Penalties: 0.30,
		},
	}
	svc, err := NewRefereeService(RefereeServiceOptions{Repo: repo})
	require.NoError(t, err)

	idx, err := svc.Strictness(context.Background(), "ref-1", "lg-1")
	require.NoError(t, err)

	assert.Equal(t, "ref-1", idx.RefereeID)
	assert.Equal(t, 48, idx.Sample)
	assert.InDelta(t, 1.2, idx.Components.Fouls, 1e-9)
	assert.InDelta(t, 1.5, idx.Components.Yellows, 1e-9)
	assert.InDelta(t, 2.5, idx.Components.Reds, 1e-9)
	assert.InDelta(t, 1.0, idx.Components.Penalties, 1e-9)

	// 0.20*1.2 + 0.40*1.5 + 0.25*2.5 + 0.15*1.0
	assert.InDelta(t, 1.615, idx.Index, 1e-9)
}

func TestStrictness_ZeroBaselineIsNeutral(t *testing.T) {
	repo := &stubRefereeRepo{
		referee: &model.Referee{
			ID:                "ref-1",
			MatchesOfficiated: 20,
			FoulsPerMatch:     18.0,
			YellowsPerMatch:   3.0,
		},
		baseline: &model.StrictnessComponents{}, // no league history yet
	}
	svc, err := NewRefereeService(RefereeServiceOptions{Repo: repo})
	require.NoError(t, err)

	idx, err := svc.Strictness(context.Background(), "ref-1", "lg-1")
	require.NoError(t, err)

	// Every component is neutral, so the index lands exactly at average.
	assert.InDelta(t, 1.0, idx.Index, 1e-9)
	assert.InDelta(t, 1.0, idx.Components.Reds, 1e-9)
}

func TestStrictness_UnknownReferee(t *testing.T) {
	svc, err := NewRefereeService(RefereeServiceOptions{Repo: &stubRefereeRepo{}})
	require.NoError(t, err)

	_, err = svc.Strictness(context.Background(), "ref-missing", "lg-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStrictness_BaselineErrorPassesThrough(t *testing.T) {
	wantErr := errors.New("baseline query failed")
	repo := &stubRefereeRepo{
		referee:     &model.Referee{ID: "ref-1", MatchesOfficiated: 30},
		baselineErr: wantErr,
	}
	svc, err := NewRefereeService(RefereeServiceOptions{Repo: repo})
	require.NoError(t, err)

	_, err = svc.Strictness(context.Background(), "ref-1", "lg-1")
	assert.ErrorIs(t, err, wantErr)
}

func TestRefereeUpdate_EmptyNameRejected(t *testing.T) {
	svc, err := NewRefereeService(RefereeServiceOptions{Repo: &stubRefereeRepo{}})
	require.NoError(t, err)

	empty := ""
	_, err = svc.Update(context.Background(), "ref-1", model.RefereePatch{Name: &empty})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 1.5, ratio(3.0, 2.0), 1e-9)
	assert.InDelta(t, 1.0, ratio(5.0, 0), 1e-9)
	assert.InDelta(t, 1.0, ratio(0, 0), 1e-9)
	assert.InDelta(t, 0.0, ratio(0, 2.0), 1e-9)
}
