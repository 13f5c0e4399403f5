package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/sportwire/ingest-admin/config"
)

// ServiceOrchestrationConfig groups dependencies for running enabled services.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// RunServicesWithShutdown runs the enabled service modes until a shutdown
// signal arrives, then tears them down in order: HTTP server first so no
// request can reach half-closed services, then the watch client.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	if appCfg.IsHTTPServerEnabled() {
		server := StartHTTPServer(&HTTPServerConfig{
			Config:   appCfg,
			Services: cfg.Services,
			DB:       cfg.DB,
			Cache:    cfg.Services.Cache,
			Logger:   logger,
		})
		group.Go(func() error {
			<-groupCtx.Done()
			return ShutdownHTTPServer(ShutdownConfig{
				Context: context.Background(),
				Server:  server,
				Logger:  logger,
			})
		})
	}

	if appCfg.IsSchedulerEnabled() {
		group.Go(func() error {
			return RunScheduler(groupCtx, SchedulerRunnerConfig{
				DB:      cfg.DB,
				Config:  appCfg.Scheduler,
				Jobs:    cfg.Services.Jobs,
				Logger:  logger,
				Metrics: cfg.Services.Observability.MetricsSink,
			})
		})
	}

	if appCfg.IsReaperEnabled() {
		group.Go(func() error {
			return RunReaper(groupCtx, ReaperRunnerConfig{
				DB:      cfg.DB,
				Config:  appCfg.Reaper,
				Logger:  logger,
				Metrics: cfg.Services.Observability.MetricsSink,
			})
		})
	}

	<-groupCtx.Done()
	logger.Info("shutdown signal received")

	err := group.Wait()

	if cfg.Services.Watcher != nil {
		cfg.Services.Watcher.Close()
	}
	if sink := cfg.Services.Observability.MetricsSink; sink != nil {
		if cerr := sink.Close(); cerr != nil {
			logger.Error("close metrics sink failed", "error", cerr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("all services stopped")
	return nil
}
