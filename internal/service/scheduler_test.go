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
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// captureSink records emitted metrics for assertions.
type captureSink struct {
	mu     sync.Mutex
	counts []capturedMetric
}

type capturedMetric struct {
	name  string
	value int64
	tags  map[string]string
}

func (c *captureSink) Count(name string, value int64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = append(c.counts, capturedMetric{name: name, value: value, tags: tags})
}

func (c *captureSink) Gauge(string, float64, map[string]string) {}

func (c *captureSink) Timing(string, time.Duration, map[string]string) {}

func (c *captureSink) tickResults() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.counts {
		if m.name == "scheduler.enqueue" {
			out = append(out, m.tags["result"])
		}
	}
	return out
}

func schedulerTestConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Interval:   time.Minute,
		BatchSize:  25,
		SyncMaxAge: 24 * time.Hour,
	}
}

func dueLeague(id string, mode model.IngestMode) *model.League {
	return &model.League{
		ID:          id,
		Name:        "League " + id,
		ExternalKey: "ext-" + id,
		IngestMode:  mode,
		Tier:        1,
	}
}

func newSchedulerService(t *testing.T, repo *stubLeagueRepo, starter *stubJobStarter, sink *captureSink) *SchedulerService {
	t.Helper()
	opts := SchedulerServiceOptions{
		Leagues: repo,
		Jobs:    starter,
		Config:  schedulerTestConfig(),
	}
	if sink != nil {
		opts.Metrics = sink
	}
	svc, err := NewSchedulerService(opts)
	require.NoError(t, err)
	return svc
}

func TestNewSchedulerService_RequiresDependencies(t *testing.T) {
	_, err := NewSchedulerService(SchedulerServiceOptions{})
	require.Error(t, err)

	_, err = NewSchedulerService(SchedulerServiceOptions{Leagues: newStubLeagueRepo()})
	require.Error(t, err)
}

func TestTick_EnqueuesDueLeagues(t *testing.T) {
	repo := newStubLeagueRepo()
	repo.due = []*model.League{
		dueLeague("lg-1", model.IngestModeActive),
		dueLeague("lg-2", model.IngestModeActive),
	}
	starter := &stubJobStarter{}
	sink := &captureSink{}
	svc := newSchedulerService(t, repo, starter, sink)

	started, err := svc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, started)

	require.Len(t, starter.requests, 2)
	assert.Equal(t, model.JobTypeMetricsSync, starter.requests[0].Type)
	assert.Equal(t, "metrics:league:lg-1", starter.requests[0].Subject)
	assert.Contains(t, string(starter.requests[0].Payload), `"external_key":"ext-lg-1"`)
	assert.Equal(t, []string{"scheduler", "scheduler"}, starter.actors)
	assert.Equal(t, []string{"started", "started"}, sink.tickResults())
}

func TestTick_SkipsPausedLeagues(t *testing.T) {
	repo := newStubLeagueRepo()
	repo.due = []*model.League{
		dueLeague("lg-1", model.IngestModePaused),
		dueLeague("lg-2", model.IngestModeActive),
	}
	starter := &stubJobStarter{}
	svc := newSchedulerService(t, repo, starter, nil)

	started, err := svc.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, started)
	require.Len(t, starter.requests, 1)
	assert.Equal(t, "metrics:league:lg-2", starter.requests[0].Subject)
}

func TestTick_ConflictSkipsLeague(t *testing.T) {
	repo := newStubLeagueRepo()
	repo.due = []*model.League{dueLeague("lg-1", model.IngestModeActive)}
	starter := &stubJobStarter{err: apperrors.Conflictf("subject busy")}
	sink := &captureSink{}
	svc := newSchedulerService(t, repo, starter, sink)

	started, err := svc.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, started)
	assert.Equal(t, []string{"skipped"}, sink.tickResults())
}

func TestTick_StartErrorContinues(t *testing.T) {
	repo := newStubLeagueRepo()
	repo.due = []*model.League{
		dueLeague("lg-1", model.IngestModeActive),
		dueLeague("lg-2", model.IngestModeActive),
	}
	starter := &stubJobStarter{err: errors.New("authority down")}
	sink := &captureSink{}
	svc := newSchedulerService(t, repo, starter, sink)

	started, err := svc.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, started)
	assert.Len(t, starter.requests, 2)
	assert.Equal(t, []string{"error", "error"}, sink.tickResults())
}

func TestTick_ListError(t *testing.T) {
	repo := newStubLeagueRepo()
	repo.dueErr = errors.New("db down")
	svc := newSchedulerService(t, repo, &stubJobStarter{}, nil)

	_, err := svc.Tick(context.Background())
	require.Error(t, err)
}

func TestSchedulerHandleFinished_StampsSync(t *testing.T) {
	repo := newStubLeagueRepo()
	svc := newSchedulerService(t, repo, &stubJobStarter{}, nil)

	svc.HandleFinished("metrics:league:lg-1", &model.Job{ID: "job-1", Status: model.JobStatusSucceeded})

	repo.mu.Lock()
	defer repo.mu.Unlock()
	stamp, ok := repo.syncStamps["lg-1"]
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().UTC(), stamp, time.Minute)
}

func TestSchedulerHandleFinished_IgnoresFailuresAndOtherSubjects(t *testing.T) {
	repo := newStubLeagueRepo()
	svc := newSchedulerService(t, repo, &stubJobStarter{}, nil)

	svc.HandleFinished("metrics:league:lg-1", &model.Job{ID: "job-1", Status: model.JobStatusFailed})
	svc.HandleFinished("season:ssn-1", &model.Job{ID: "job-2", Status: model.JobStatusSucceeded})
	svc.HandleFinished("metrics:league:lg-1", nil)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Empty(t, repo.syncStamps)
}

func TestSchedulerRun_StopsOnCancel(t *testing.T) {
	repo := newStubLeagueRepo()
	svc, err := NewSchedulerService(SchedulerServiceOptions{
		Leagues: repo,
		Jobs:    &stubJobStarter{},
		Config: config.SchedulerConfig{
			Interval:   10 * time.Millisecond,
			BatchSize:  5,
			SyncMaxAge: time.Hour,
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case runErr := <-done:
		assert.NoError(t, runErr)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
