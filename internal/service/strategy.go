package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// strategySubjectPrefix matches model.Strategy.SubjectKey.
const strategySubjectPrefix = "strategy:"

// StrategyServiceOptions groups dependencies for StrategyService.
type StrategyServiceOptions struct {
	Repo   core.StrategyRepository // Required: strategy repository
	Jobs   jobStarter              // Required: job start entry point
	Logger *slog.Logger            // Optional: structured logger
}

// StrategyService exposes the strategy lab: genetic strategies, their
// backtest runs, and backtest kickoff against the remote job system.
type StrategyService struct {
	repo   core.StrategyRepository
	jobs   jobStarter
	logger *slog.Logger
}

// NewStrategyService constructs a new StrategyService.
func NewStrategyService(opts StrategyServiceOptions) (*StrategyService, error) {
	if opts.Repo == nil {
		return nil, errors.New("StrategyRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("job starter is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &StrategyService{
		repo:   opts.Repo,
		jobs:   opts.Jobs,
		logger: logger.With("component", "strategy_service"),
	}, nil
}

// GetByID returns one strategy.
func (s *StrategyService) GetByID(ctx context.Context, id string) (*model.Strategy, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns strategies with pagination and filters.
func (s *StrategyService) List(ctx context.Context, opts model.StrategiesListOptions) ([]*model.Strategy, error) {
	return s.repo.List(ctx, opts)
}

// ListRuns returns the recent backtest runs for one strategy.
func (s *StrategyService) ListRuns(ctx context.Context, strategyID string, limit int) ([]*model.BacktestRun, error) {
	if limit < 1 {
		limit = 20
	}
	return s.repo.ListRuns(ctx, strategyID, limit)
}

// StartBacktest submits a backtest job for the strategy and records a run
// linked to it. Subject keying serializes backtests per strategy.
func (s *StrategyService) StartBacktest(ctx context.Context, actor, strategyID string) (*model.BacktestRun, error) {
	strategy, err := s.repo.GetByID(ctx, strategyID)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	if strategy.Archived {
		return nil, apperrors.Conflictf("strategy %s is archived", strategy.Name)
	}

	payload, err := json.Marshal(map[string]any{
		"strategy_id": strategy.ID,
		"generation":  strategy.Generation,
		"genome":      strategy.Genome,
	})
	if err != nil {
		return nil, fmt.Errorf("encode backtest payload: %w", err)
	}

	job, err := s.jobs.Start(ctx, actor, &model.StartJobRequest{
		Type:    model.JobTypeBacktest,
		Subject: strategy.SubjectKey(),
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}

	run, err := s.repo.InsertRun(ctx, &model.BacktestRun{
		StrategyID: strategy.ID,
		JobID:      job.ID,
		Status:     job.Status,
		StartedAt:  time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("record backtest run: %w", err)
	}

	s.logger.InfoContext(ctx, "backtest started",
		"strategy_id", strategy.ID, "job_id", job.ID)
	return run, nil
}

// HandleFinished records backtest outcomes when the watcher reports a
// terminal job. Non-backtest subjects are ignored so the hook can sit on the
// shared completion chain.
func (s *StrategyService) HandleFinished(subject string, job *model.Job) {
	if job == nil || !strings.HasPrefix(subject, strategySubjectPrefix) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), finishedHookTimeout)
	defer cancel()

	summary := backtestSummary(job)
	if _, err := s.repo.FinishRun(ctx, core.FinishBacktestRunParams{
		JobID:   job.ID,
		Status:  job.Status,
		Summary: summary,
	}); err != nil {
		if apperrors.IsNotFound(err) {
			// Backtest started outside this service; nothing to reconcile.
			return
		}
		s.logger.Error("failed to record backtest outcome",
			"job_id", job.ID, "status", job.Status, "error", err)
	}
}

// backtestSummary condenses the terminal job into the run's stored summary.
func backtestSummary(job *model.Job) []byte {
	out := map[string]any{"status": job.Status}
	if job.Progress != nil {
		out["processed"] = job.Progress.Processed
	}
	if msg := job.LastError(); msg != "" {
		out["error"] = msg
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return raw
}
