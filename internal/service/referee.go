package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// Component weights for the composite strictness index. Yellows dominate
// because they are the highest-volume discipline signal.
const (
	strictnessFoulsWeight     = 0.20
	strictnessYellowsWeight   = 0.40
	strictnessRedsWeight      = 0.25
	strictnessPenaltiesWeight = 0.15
)

// minStrictnessSample is the officiating sample below which the index is
// reported but should be treated as low confidence.
const minStrictnessSample = 10

// RefereeServiceOptions groups dependencies for RefereeService.
type RefereeServiceOptions struct {
	Repo   core.RefereeRepository // Required: referee repository
	Logger *slog.Logger           // Optional: structured logger
}

// RefereeService exposes referee profiles and their discipline index.
type RefereeService struct {
	repo   core.RefereeRepository
	logger *slog.Logger
}

// NewRefereeService constructs a new RefereeService.
func NewRefereeService(opts RefereeServiceOptions) (*RefereeService, error) {
	if opts.Repo == nil {
		return nil, errors.New("RefereeRepository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RefereeService{
		repo:   opts.Repo,
		logger: logger.With("component", "referee_service"),
	}, nil
}

// GetByID returns one referee.
func (s *RefereeService) GetByID(ctx context.Context, id string) (*model.Referee, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns referees with pagination and filters.
func (s *RefereeService) List(ctx context.Context, opts model.RefereesListOptions) ([]*model.Referee, error) {
	return s.repo.List(ctx, opts)
}

// Update applies a patch to a referee.
func (s *RefereeService) Update(ctx context.Context, id string, patch model.RefereePatch) (*model.Referee, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, apperrors.ValidationField("name", "referee name cannot be empty")
	}
	return s.repo.Update(ctx, id, patch)
}

// Strictness computes the referee's composite discipline index relative to
// the league baseline. 1.0 means league average; 1.3 means the referee
// produces ~30% more discipline events than an average official.
func (s *RefereeService) Strictness(ctx context.Context, refereeID, leagueID string) (*model.StrictnessIndex, error) {
	referee, err := s.repo.GetByID(ctx, refereeID)
	if err != nil {
		return nil, fmt.Errorf("load referee: %w", err)
	}

	baseline, err := s.repo.LeagueBaseline(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("load league baseline: %w", err)
	}

	components := model.StrictnessComponents{
		Fouls:     ratio(referee.FoulsPerMatch, baseline.Fouls),
		Yellows:   ratio(referee.YellowsPerMatch, baseline.Yellows),
		Reds:      ratio(referee.RedsPerMatch, baseline.Reds),
		Penalties: ratio(referee.PenaltiesPerMatch, baseline.Penalties),
	}

	index := strictnessFoulsWeight*components.Fouls +
		strictnessYellowsWeight*components.Yellows +
		strictnessRedsWeight*components.Reds +
		strictnessPenaltiesWeight*components.Penalties

	if referee.MatchesOfficiated < minStrictnessSample {
		s.logger.DebugContext(ctx, "strictness index has low sample",
			"referee_id", refereeID, "sample", referee.MatchesOfficiated)
	}

	return &model.StrictnessIndex{
		RefereeID:  refereeID,
		Index:      index,
		Sample:     referee.MatchesOfficiated,
		Components: components,
	}, nil
}

// ratio normalizes a referee rate against the league baseline. A zero
// baseline contributes a neutral 1.0 so sparse leagues don't skew the index.
func ratio(value, baseline float64) float64 {
	if baseline <= 0 {
		return 1.0
	}
	return value / baseline
}
