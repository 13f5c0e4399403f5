package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// jobStarter is the subset of JobService league operations need:
// kicking off deep ingests for a season.
type jobStarter interface {
	Start(ctx context.Context, actor string, req *model.StartJobRequest) (*model.Job, error)
}

// LeagueServiceOptions groups dependencies for LeagueService.
type LeagueServiceOptions struct {
	Repo   core.LeagueRepository // Required: league repository
	Jobs   jobStarter            // Required: job start entry point
	Audit  auditRecorder         // Optional: admin action audit log
	Logger *slog.Logger          // Optional: structured logger
}

// LeagueService orchestrates league configuration and deep-ingest kickoff.
type LeagueService struct {
	repo   core.LeagueRepository
	jobs   jobStarter
	audit  auditRecorder
	logger *slog.Logger
}

// NewLeagueService constructs a new LeagueService.
func NewLeagueService(opts LeagueServiceOptions) (*LeagueService, error) {
	if opts.Repo == nil {
		return nil, errors.New("LeagueRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("job starter is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LeagueService{
		repo:   opts.Repo,
		jobs:   opts.Jobs,
		audit:  opts.Audit,
		logger: logger.With("component", "league_service"),
	}, nil
}

// GetByID returns one league.
func (s *LeagueService) GetByID(ctx context.Context, id string) (*model.League, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns leagues with pagination and filters.
func (s *LeagueService) List(ctx context.Context, opts model.LeaguesListOptions) ([]*model.League, error) {
	return s.repo.List(ctx, opts)
}

// Update applies a patch to a league and records the change.
func (s *LeagueService) Update(ctx context.Context, params UpdateLeagueParams) (*model.League, error) {
	if params.Patch.IngestMode != nil && !params.Patch.IngestMode.Valid() {
		return nil, apperrors.ValidationField("ingest_mode", "invalid ingest mode")
	}
	if params.Patch.Tier != nil && *params.Patch.Tier < 1 {
		return nil, apperrors.ValidationField("tier", "tier must be positive")
	}

	league, err := s.repo.Update(ctx, params.ID, params.Patch)
	if err != nil {
		return nil, fmt.Errorf("update league: %w", err)
	}

	s.recordLeagueAudit(ctx, params, league)
	return league, nil
}

// UpdateLeagueParams groups parameters for LeagueService.Update.
type UpdateLeagueParams struct {
	ID    string
	Actor string
	Patch model.LeaguePatch
}

// StartDeepIngest kicks off a deep ingest job for the league's current
// season. The subject key serializes ingests per season.
func (s *LeagueService) StartDeepIngest(ctx context.Context, actor, leagueID string) (*model.Job, error) {
	league, err := s.repo.GetByID(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("load league: %w", err)
	}
	if league.IngestMode != model.IngestModeActive {
		return nil, apperrors.Conflictf("league %s ingestion is paused", league.Name)
	}

	season, err := s.repo.CurrentSeason(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("load current season: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"league_id":    leagueID,
		"season_id":    season.ID,
		"external_key": league.ExternalKey,
	})
	if err != nil {
		return nil, fmt.Errorf("encode ingest payload: %w", err)
	}

	job, err := s.jobs.Start(ctx, actor, &model.StartJobRequest{
		Type:    model.JobTypeDeepIngest,
		Subject: season.SubjectKey(),
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "deep ingest started",
		"league_id", leagueID, "season_id", season.ID, "job_id", job.ID)
	return job, nil
}

func (s *LeagueService) recordLeagueAudit(ctx context.Context, params UpdateLeagueParams, league *model.League) {
	if s.audit == nil {
		return
	}

	detail, _ := json.Marshal(params.Patch)
	entry := &model.AuditEntry{
		Actor:      params.Actor,
		Action:     "league.update",
		EntityType: "league",
		EntityID:   league.ID,
		Detail:     detail,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit entry",
			"league_id", league.ID, "error", err)
	}
}
