package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

type stubStrategyRepo struct {
	mu sync.Mutex

	strategy     *model.Strategy
	insertedRuns []*model.BacktestRun
	insertErr    error
	finishCalls  []core.FinishBacktestRunParams
	finishErr    error
}

func (r *stubStrategyRepo) GetByID(_ context.Context, id string) (*model.Strategy, error) {
	if r.strategy == nil || r.strategy.ID != id {
		return nil, apperrors.NotFoundf("strategy %s not found", id)
	}
	return r.strategy, nil
}

func (r *stubStrategyRepo) List(_ context.Context, _ model.StrategiesListOptions) ([]*model.Strategy, error) {
	if r.strategy == nil {
		return nil, nil
	}
	return []*model.Strategy{r.strategy}, nil
}

func (r *stubStrategyRepo) InsertRun(_ context.Context, run *model.BacktestRun) (*model.BacktestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	stored := *run
	stored.ID = "run-1"
	r.insertedRuns = append(r.insertedRuns, &stored)
	return &stored, nil
}

func (r *stubStrategyRepo) GetRunByJobID(_ context.Context, jobID string) (*model.BacktestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, run := range r.insertedRuns {
		if run.JobID == jobID {
			return run, nil
		}
	}
	return nil, apperrors.NotFoundf("run for job %s not found", jobID)
}

func (r *stubStrategyRepo) FinishRun(_ context.Context, params core.FinishBacktestRunParams) (*model.BacktestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishCalls = append(r.finishCalls, params)
	if r.finishErr != nil {
		return nil, r.finishErr
	}
	return &model.BacktestRun{JobID: params.JobID, Status: params.Status, Summary: params.Summary}, nil
}

func (r *stubStrategyRepo) ListRuns(_ context.Context, _ string, _ int) ([]*model.BacktestRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertedRuns, nil
}

func (r *stubStrategyRepo) finished() []core.FinishBacktestRunParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.FinishBacktestRunParams, len(r.finishCalls))
	copy(out, r.finishCalls)
	return out
}

func labStrategy() *model.Strategy {
	return &model.Strategy{
		ID:         "st-1",
		Name:       "over25-momentum",
		Generation: 12,
		Genome:     json.RawMessage(`{"genes":[0.4,1.7]}`),
	}
}

func newStrategyService(t *testing.T, repo *stubStrategyRepo, starter *stubJobStarter) *StrategyService {
	t.Helper()
	svc, err := NewStrategyService(StrategyServiceOptions{Repo: repo, Jobs: starter})
	require.NoError(t, err)
	return svc
}

func TestNewStrategyService_RequiresDependencies(t *testing.T) {
	_, err := NewStrategyService(StrategyServiceOptions{})
	require.Error(t, err)

	_, err = NewStrategyService(StrategyServiceOptions{Repo: &stubStrategyRepo{}})
	require.Error(t, err)
}

func TestStartBacktest(t *testing.T) {
	repo := &stubStrategyRepo{strategy: labStrategy()}
	starter := &stubJobStarter{job: &model.Job{
		ID:     "job-bt-1",
		Type:   model.JobTypeBacktest,
		Status: model.JobStatusQueued,
	}}
	svc := newStrategyService(t, repo, starter)

	run, err := svc.StartBacktest(context.Background(), "quant@example.com", "st-1")
	require.NoError(t, err)

	assert.Equal(t, "st-1", run.StrategyID)
	assert.Equal(t, "job-bt-1", run.JobID)
	assert.Equal(t, model.JobStatusQueued, run.Status)
	assert.False(t, run.StartedAt.IsZero())

	require.Len(t, starter.requests, 1)
	req := starter.requests[0]
	assert.Equal(t, model.JobTypeBacktest, req.Type)
	assert.Equal(t, "strategy:st-1", req.Subject)
	assert.Contains(t, string(req.Payload), `"generation":12`)
	assert.Contains(t, string(req.Payload), `"genes"`)
}

func TestStartBacktest_ArchivedStrategy(t *testing.T) {
	strategy := labStrategy()
	strategy.Archived = true
	repo := &stubStrategyRepo{strategy: strategy}
	starter := &stubJobStarter{}
	svc := newStrategyService(t, repo, starter)

	_, err := svc.StartBacktest(context.Background(), "quant@example.com", "st-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Empty(t, starter.requests)
}

func TestStartBacktest_UnknownStrategy(t *testing.T) {
	svc := newStrategyService(t, &stubStrategyRepo{}, &stubJobStarter{})

	_, err := svc.StartBacktest(context.Background(), "quant@example.com", "st-missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStartBacktest_StartErrorSkipsRun(t *testing.T) {
	repo := &stubStrategyRepo{strategy: labStrategy()}
	wantErr := errors.New("authority down")
	svc := newStrategyService(t, repo, &stubJobStarter{err: wantErr})

	_, err := svc.StartBacktest(context.Background(), "quant@example.com", "st-1")
	require.ErrorIs(t, err, wantErr)
	assert.Empty(t, repo.insertedRuns)
}

func TestStrategyHandleFinished(t *testing.T) {
	repo := &stubStrategyRepo{strategy: labStrategy()}
	svc := newStrategyService(t, repo, &stubJobStarter{})

	completed := time.Now().UTC()
	svc.HandleFinished("strategy:st-1", &model.Job{
		ID:          "job-bt-1",
		Status:      model.JobStatusSucceeded,
		Progress:    &model.JobProgress{Processed: 1240},
		CompletedAt: &completed,
	})

	calls := repo.finished()
	require.Len(t, calls, 1)
	assert.Equal(t, "job-bt-1", calls[0].JobID)
	assert.Equal(t, model.JobStatusSucceeded, calls[0].Status)
	assert.Contains(t, string(calls[0].Summary), `"processed":1240`)
}

func TestStrategyHandleFinished_FailureRecordsError(t *testing.T) {
	repo := &stubStrategyRepo{strategy: labStrategy()}
	svc := newStrategyService(t, repo, &stubJobStarter{})

	svc.HandleFinished("strategy:st-1", &model.Job{
		ID:     "job-bt-1",
		Status: model.JobStatusFailed,
		ErrorLog: []model.JobLogEntry{
			{Message: "backtest window empty"},
			{Message: "simulation aborted"},
		},
	})

	calls := repo.finished()
	require.Len(t, calls, 1)
	assert.Contains(t, string(calls[0].Summary), "simulation aborted")
}

func TestStrategyHandleFinished_IgnoresOtherSubjects(t *testing.T) {
	repo := &stubStrategyRepo{strategy: labStrategy()}
	svc := newStrategyService(t, repo, &stubJobStarter{})

	svc.HandleFinished("season:ssn-1", &model.Job{ID: "job-1", Status: model.JobStatusSucceeded})
	svc.HandleFinished("strategy:st-1", nil)

	assert.Empty(t, repo.finished())
}

func TestStrategyHandleFinished_UnknownRunIgnored(t *testing.T) {
	repo := &stubStrategyRepo{finishErr: apperrors.NotFoundf("run not found")}
	svc := newStrategyService(t, repo, &stubJobStarter{})

	// Must not panic or retry; a run started outside this service is fine.
	svc.HandleFinished("strategy:st-1", &model.Job{ID: "job-x", Status: model.JobStatusSucceeded})
	require.Len(t, repo.finished(), 1)
}
