// Package scheduler provides an adapter for running the metrics-sync
// scheduler loop.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/sportwire/ingest-admin/config"
	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/data"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	"github.com/sportwire/ingest-admin/internal/observability/statsd"
	"github.com/sportwire/ingest-admin/internal/service"
)

// JobStarter submits jobs to the authority; implemented by service.JobService.
type JobStarter interface {
	Start(ctx context.Context, actor string, req *model.StartJobRequest) (*model.Job, error)
}

// Runner wires the scheduler service from a database handle and runs its
// tick loop.
type Runner struct {
	scheduler *service.SchedulerService
	logger    *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.SchedulerConfig
	Jobs   JobStarter
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Leagues core.LeagueRepository
	Metrics statsd.Sink
}

// NewRunner creates a new scheduler runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	leagues := opts.Leagues
	if leagues == nil {
		leagues = data.NewLeagueRepo(opts.DB)
	}

	scheduler, err := service.NewSchedulerService(service.SchedulerServiceOptions{
		Leagues: leagues,
		Jobs:    opts.Jobs,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Runner{
		scheduler: scheduler,
		logger:    opts.Logger,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Leagues == nil {
		return errors.New("database connection is required")
	}
	if opts.Jobs == nil {
		return errors.New("job starter is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// Run starts the scheduler loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting scheduler runner")
	return r.scheduler.Run(ctx)
}
