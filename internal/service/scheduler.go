package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sportwire/ingest-admin/config"
	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
	"github.com/sportwire/ingest-admin/internal/observability/statsd"
)

// metricsSubjectPrefix keys metrics-sync jobs per league in the watch set.
const metricsSubjectPrefix = "metrics:league:"

// schedulerActor is the audit actor recorded for scheduler-initiated jobs.
const schedulerActor = "scheduler"

// SchedulerServiceOptions groups dependencies for SchedulerService.
type SchedulerServiceOptions struct {
	Leagues core.LeagueRepository  // Required: league repository
	Jobs    jobStarter             // Required: job start entry point
	Config  config.SchedulerConfig // Required: scheduler configuration
	Logger  *slog.Logger           // Optional: structured logger
	Metrics statsd.Sink            // Optional: metrics sink (StatsD-compatible)
}

// SchedulerService periodically enqueues metrics_sync jobs for leagues whose
// last sync is older than the configured horizon.
type SchedulerService struct {
	leagues core.LeagueRepository
	jobs    jobStarter
	config  config.SchedulerConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewSchedulerService constructs a new SchedulerService.
func NewSchedulerService(opts SchedulerServiceOptions) (*SchedulerService, error) {
	if opts.Leagues == nil {
		return nil, errors.New("LeagueRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("job starter is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &SchedulerService{
		leagues: opts.Leagues,
		jobs:    opts.Jobs,
		config:  opts.Config,
		logger:  logger.With("component", "scheduler_service"),
		metrics: opts.Metrics,
	}, nil
}

// Run starts the scheduler loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SchedulerService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting scheduler service",
		"interval", s.config.Interval, "sync_max_age", s.config.SyncMaxAge)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				s.logger.Info("scheduler service stopped")
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Tick(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				s.logger.ErrorContext(ctx, "scheduler tick failed", "error", err)
			}
		}
	}
}

// Tick enqueues one batch of overdue metrics syncs and returns how many jobs
// were started. Leagues whose subject already has a job in flight are skipped.
func (s *SchedulerService) Tick(ctx context.Context) (int, error) {
	due, err := s.leagues.ListDueForMetricsSync(ctx, s.config.SyncMaxAge, s.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due leagues: %w", err)
	}

	started := 0
	for _, league := range due {
		if league.IngestMode != model.IngestModeActive {
			continue
		}

		payload, marshalErr := json.Marshal(map[string]string{
			"league_id":    league.ID,
			"external_key": league.ExternalKey,
		})
		if marshalErr != nil {
			return started, fmt.Errorf("encode sync payload: %w", marshalErr)
		}

		_, startErr := s.jobs.Start(ctx, schedulerActor, &model.StartJobRequest{
			Type:    model.JobTypeMetricsSync,
			Subject: metricsSubjectPrefix + league.ID,
			Payload: payload,
		})
		if startErr != nil {
			if apperrors.IsConflict(startErr) {
				// A sync for this league is still in flight.
				s.emitTick("skipped")
				continue
			}
			s.emitTick("error")
			s.logger.ErrorContext(ctx, "failed to enqueue metrics sync",
				"league_id", league.ID, "error", startErr)
			continue
		}

		started++
		s.emitTick("started")
	}

	if started > 0 {
		s.logger.InfoContext(ctx, "metrics syncs enqueued", "count", started, "due", len(due))
	}
	return started, nil
}

// HandleFinished stamps a league's last sync time when its metrics job
// succeeds. Non-metrics subjects are ignored.
func (s *SchedulerService) HandleFinished(subject string, job *model.Job) {
	if job == nil || !strings.HasPrefix(subject, metricsSubjectPrefix) {
		return
	}
	if job.Status != model.JobStatusSucceeded {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), finishedHookTimeout)
	defer cancel()

	leagueID := strings.TrimPrefix(subject, metricsSubjectPrefix)
	if err := s.leagues.MarkMetricsSync(ctx, leagueID, time.Now().UTC()); err != nil {
		s.logger.Error("failed to stamp metrics sync",
			"league_id", leagueID, "job_id", job.ID, "error", err)
	}
}

func (s *SchedulerService) emitTick(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Count("scheduler.enqueue", 1, map[string]string{
		"job_type": string(model.JobTypeMetricsSync),
		"result":   result,
	})
}
