package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportwire/ingest-admin/config"
	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
)

type stubReaperRepo struct {
	mu sync.Mutex

	// Number of batches to report before returning zero, keyed by operation.
	staleBatches     []int64
	succeededBatches []int64
	failedBatches    []int64

	failStaleErr error
	deleteErr    error

	failStaleCalls []core.FailStaleJobsParams
	deleteCalls    []core.DeleteOldJobsParams
}

func (s *stubReaperRepo) FailStaleJobs(_ context.Context, params core.FailStaleJobsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStaleCalls = append(s.failStaleCalls, params)
	if s.failStaleErr != nil {
		return 0, s.failStaleErr
	}
	return popBatch(&s.staleBatches), nil
}

func (s *stubReaperRepo) DeleteOldJobs(_ context.Context, params core.DeleteOldJobsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, params)
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	switch params.Status {
	case model.JobStatusSucceeded:
		return popBatch(&s.succeededBatches), nil
	case model.JobStatusFailed:
		return popBatch(&s.failedBatches), nil
	default:
		return 0, nil
	}
}

func popBatch(batches *[]int64) int64 {
	if len(*batches) == 0 {
		return 0
	}
	count := (*batches)[0]
	*batches = (*batches)[1:]
	return count
}

type stubAuditRetention struct {
	mu          sync.Mutex
	batches     []int64
	err         error
	deleteCalls int
	lastMaxAge  time.Duration
	lastBatch   int
}

func (s *stubAuditRetention) Insert(context.Context, *model.AuditEntry) error { return nil }

func (s *stubAuditRetention) List(context.Context, model.AuditListOptions) ([]*model.AuditEntry, error) {
	return nil, nil
}

func (s *stubAuditRetention) DeleteOld(_ context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	s.lastMaxAge = maxAge
	s.lastBatch = batchSize
	if s.err != nil {
		return 0, s.err
	}
	return popBatch(&s.batches), nil
}

func reaperTestConfig() config.ReaperConfig {
	return config.ReaperConfig{
		Interval:        5 * time.Minute,
		StaleMaxAge:     time.Hour,
		SucceededMaxAge: 7 * 24 * time.Hour,
		FailedMaxAge:    7 * 24 * time.Hour,
		AuditMaxAge:     90 * 24 * time.Hour,
		BatchSize:       100,
	}
}

func TestNewReaperService_RequiresRepo(t *testing.T) {
	_, err := NewReaperService(ReaperServiceOptions{Config: reaperTestConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ReaperRepository")
}

func TestReaperRunCleanup_BatchesUntilExhausted(t *testing.T) {
	repo := &stubReaperRepo{
		staleBatches:     []int64{100, 100, 7},
		succeededBatches: []int64{42},
		failedBatches:    []int64{3},
	}
	audit := &stubAuditRetention{batches: []int64{12}}

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:   repo,
		Audit:  audit,
		Config: reaperTestConfig(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunCleanup(context.Background()))

	// Each non-zero batch triggers another call; the final zero stops the loop.
	assert.Len(t, repo.failStaleCalls, 4)
	assert.Equal(t, time.Hour, repo.failStaleCalls[0].MaxAge)
	assert.Equal(t, 100, repo.failStaleCalls[0].BatchSize)

	// Two statuses, each needing one extra call to observe zero.
	assert.Len(t, repo.deleteCalls, 4)

	assert.Equal(t, 2, audit.deleteCalls)
	assert.Equal(t, 90*24*time.Hour, audit.lastMaxAge)
	assert.Equal(t, 100, audit.lastBatch)
}

func TestReaperRunCleanup_NoAuditRepoSkipsRetention(t *testing.T) {
	repo := &stubReaperRepo{}

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:   repo,
		Config: reaperTestConfig(),
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunCleanup(context.Background()))
	assert.Len(t, repo.failStaleCalls, 1)
	assert.Len(t, repo.deleteCalls, 2)
}

func TestReaperRunCleanup_AggregatesStepErrors(t *testing.T) {
	repoErr := errors.New("relation locked")
	repo := &stubReaperRepo{failStaleErr: repoErr}
	audit := &stubAuditRetention{err: errors.New("audit unavailable")}

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:   repo,
		Audit:  audit,
		Config: reaperTestConfig(),
	})
	require.NoError(t, err)

	err = svc.RunCleanup(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, repoErr)
	assert.Contains(t, err.Error(), "fail stale jobs")
	assert.Contains(t, err.Error(), "prune audit log")

	// One failing step does not stop the others.
	assert.Len(t, repo.deleteCalls, 2)
}

func TestReaperRunCleanup_AllCancelledCollapsesToCanceled(t *testing.T) {
	repo := &stubReaperRepo{
		failStaleErr: context.Canceled,
		deleteErr:    context.Canceled,
	}
	audit := &stubAuditRetention{err: context.Canceled}

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:   repo,
		Audit:  audit,
		Config: reaperTestConfig(),
	})
	require.NoError(t, err)

	err = svc.RunCleanup(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReaperRun_StopsOnContextCancel(t *testing.T) {
	repo := &stubReaperRepo{}

	cfg := reaperTestConfig()
	cfg.Interval = 50 * time.Millisecond

	svc, err := NewReaperService(ReaperServiceOptions{
		Repo:   repo,
		Config: cfg,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case runErr := <-done:
		assert.NoError(t, runErr)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not stop after cancellation")
	}

	repo.mu.Lock()
	calls := len(repo.failStaleCalls)
	repo.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 1)
}

func TestFirstError(t *testing.T) {
	errA := errors.New("a")
	errB := errors.New("b")

	assert.Nil(t, firstError())
	assert.Nil(t, firstError(nil, nil))
	assert.Equal(t, errA, firstError(nil, errA, errB))
}

func TestSuppressContextCancellation(t *testing.T) {
	assert.Nil(t, suppressContextCancellation(context.Canceled))
	assert.Nil(t, suppressContextCancellation(context.DeadlineExceeded))

	plain := errors.New("boom")
	assert.Equal(t, plain, suppressContextCancellation(plain))
	assert.Nil(t, suppressContextCancellation(nil))
}
