package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/sportwire/ingest-admin/config"
	"github.com/sportwire/ingest-admin/internal/adapters/reaper"
	schedrunner "github.com/sportwire/ingest-admin/internal/adapters/scheduler"
	"github.com/sportwire/ingest-admin/internal/observability/statsd"
	"github.com/sportwire/ingest-admin/internal/service"
)

// SchedulerRunnerConfig contains configuration for the scheduler runner.
type SchedulerRunnerConfig struct {
	DB      *sql.DB
	Config  config.SchedulerConfig
	Jobs    *service.JobService
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// RunScheduler starts the metrics-sync scheduler loop and blocks until the
// context is cancelled.
func RunScheduler(ctx context.Context, cfg SchedulerRunnerConfig) error {
	runner, err := schedrunner.NewRunner(schedrunner.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Jobs:    cfg.Jobs,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create scheduler runner: %w", err)
	}

	return runner.Run(ctx)
}

// ReaperRunnerConfig contains configuration for the reaper runner.
type ReaperRunnerConfig struct {
	DB      *sql.DB
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// RunReaper starts the mirror cleanup loop and blocks until the context is
// cancelled.
func RunReaper(ctx context.Context, cfg ReaperRunnerConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
