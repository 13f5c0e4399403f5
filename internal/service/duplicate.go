package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sportwire/ingest-admin/config"
	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// Confidence assigned per duplicate signal. Same grouping key from two
// providers is near-certain; adjacent kickoff buckets usually mean one feed
// reports local time.
const (
	confidenceSameKey        = 0.95
	confidenceAdjacentBucket = 0.60
)

// DuplicateServiceOptions groups dependencies for DuplicateService.
type DuplicateServiceOptions struct {
	Matches    core.MatchRepository     // Required: fixture read side
	Duplicates core.DuplicateRepository // Required: duplicate review store
	Config     config.DuplicatesConfig  // Required: scan configuration
	Audit      auditRecorder            // Optional: admin action audit log
	Logger     *slog.Logger             // Optional: structured logger
}

// DuplicateService detects fixtures that likely describe the same real-world
// match and manages their review lifecycle. Resolution is always an operator
// decision; detection only proposes.
type DuplicateService struct {
	matches    core.MatchRepository
	duplicates core.DuplicateRepository
	config     config.DuplicatesConfig
	audit      auditRecorder
	logger     *slog.Logger
}

// NewDuplicateService constructs a new DuplicateService.
func NewDuplicateService(opts DuplicateServiceOptions) (*DuplicateService, error) {
	if opts.Matches == nil {
		return nil, errors.New("MatchRepository is required")
	}
	if opts.Duplicates == nil {
		return nil, errors.New("DuplicateRepository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DuplicateService{
		matches:    opts.Matches,
		duplicates: opts.Duplicates,
		config:     opts.Config,
		audit:      opts.Audit,
		logger:     logger.With("component", "duplicate_service"),
	}, nil
}

// List returns recorded duplicate pairs with pagination and filters.
func (s *DuplicateService) List(ctx context.Context, opts model.DuplicatesListOptions) ([]*model.MatchDuplicate, error) {
	return s.duplicates.List(ctx, opts)
}

// Scan examines recent fixtures in one league and records candidate
// duplicate pairs. It returns the pairs recorded by this scan.
func (s *DuplicateService) Scan(ctx context.Context, leagueID string) ([]*model.MatchDuplicate, error) {
	if leagueID == "" {
		return nil, apperrors.Validation("league id is required")
	}

	fixtures, err := s.matches.ListRecent(ctx, leagueID, s.config.Window)
	if err != nil {
		return nil, fmt.Errorf("list recent fixtures: %w", err)
	}

	candidates := s.pairCandidates(fixtures)
	recorded := make([]*model.MatchDuplicate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Confidence < s.config.MinConfidence {
			continue
		}
		stored, insErr := s.duplicates.Insert(ctx, cand)
		if insErr != nil {
			if apperrors.IsConflict(insErr) {
				// Pair already queued for review from an earlier scan.
				continue
			}
			return nil, fmt.Errorf("record duplicate pair: %w", insErr)
		}
		recorded = append(recorded, stored)
	}

	s.logger.InfoContext(ctx, "duplicate scan finished",
		"league_id", leagueID, "fixtures", len(fixtures), "recorded", len(recorded))
	return recorded, nil
}

// Merge marks a duplicate pair as merged into the primary fixture.
func (s *DuplicateService) Merge(ctx context.Context, actor, duplicateID string) (*model.MatchDuplicate, error) {
	return s.resolve(ctx, resolveRequest{
		Actor:  actor,
		ID:     duplicateID,
		Status: model.DuplicateStatusMerged,
		Action: "duplicate.merge",
	})
}

// Dismiss marks a duplicate pair as a false positive.
func (s *DuplicateService) Dismiss(ctx context.Context, actor, duplicateID string) (*model.MatchDuplicate, error) {
	return s.resolve(ctx, resolveRequest{
		Actor:  actor,
		ID:     duplicateID,
		Status: model.DuplicateStatusDismissed,
		Action: "duplicate.dismiss",
	})
}

type resolveRequest struct {
	Actor  string
	ID     string
	Status model.DuplicateStatus
	Action string
}

func (s *DuplicateService) resolve(ctx context.Context, req resolveRequest) (*model.MatchDuplicate, error) {
	existing, err := s.duplicates.GetByID(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("load duplicate: %w", err)
	}
	if existing.Status != model.DuplicateStatusOpen {
		return nil, apperrors.Conflictf("duplicate %s already resolved as %s", req.ID, existing.Status)
	}

	resolved, err := s.duplicates.Resolve(ctx, core.ResolveDuplicateParams{
		ID:         req.ID,
		Status:     req.Status,
		ResolvedBy: req.Actor,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve duplicate: %w", err)
	}

	if s.audit != nil {
		detail, _ := json.Marshal(map[string]string{
			"match_id": resolved.MatchID,
			"other_id": resolved.OtherID,
		})
		entry := &model.AuditEntry{
			Actor:      req.Actor,
			Action:     req.Action,
			EntityType: "match_duplicate",
			EntityID:   req.ID,
			Detail:     detail,
		}
		if auditErr := s.audit.Record(ctx, entry); auditErr != nil {
			s.logger.ErrorContext(ctx, "failed to record audit entry",
				"duplicate_id", req.ID, "error", auditErr)
		}
	}
	return resolved, nil
}

// pairCandidates groups fixtures by normalized duplicate key and emits a
// candidate pair for every cross-provider collision. It also compares
// adjacent kickoff buckets to catch timezone-shifted feeds.
func (s *DuplicateService) pairCandidates(fixtures []*model.Match) []*model.MatchDuplicate {
	bucket := s.config.KickoffBucket
	byKey := make(map[string][]*model.Match, len(fixtures))
	for _, m := range fixtures {
		key := model.DuplicateKey(m.LeagueID, m.KickoffAt, bucket, m.HomeTeamID, m.AwayTeamID)
		byKey[key] = append(byKey[key], m)
	}

	var out []*model.MatchDuplicate
	for _, group := range byKey {
		out = append(out, pairGroup(group, confidenceSameKey, "same kickoff bucket and teams")...)
	}

	// Shift each fixture forward one bucket and look for a collision: a pair
	// whose kickoffs land in adjacent buckets.
	for _, m := range fixtures {
		shifted := model.DuplicateKey(m.LeagueID, m.KickoffAt.Add(bucket), bucket, m.HomeTeamID, m.AwayTeamID)
		for _, other := range byKey[shifted] {
			if other.ID == m.ID || other.Provider == m.Provider {
				continue
			}
			out = append(out, newCandidate(m, other, confidenceAdjacentBucket,
				fmt.Sprintf("same teams, kickoff within %s", 2*bucket)))
		}
	}
	return out
}

// pairGroup emits candidates for all cross-provider pairs inside one key group.
func pairGroup(group []*model.Match, confidence float64, reason string) []*model.MatchDuplicate {
	if len(group) < 2 {
		return nil
	}
	var out []*model.MatchDuplicate
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			if group[i].Provider == group[j].Provider {
				// Same feed sending the fixture twice is an ingest retry,
				// not a duplicate to review.
				continue
			}
			out = append(out, newCandidate(group[i], group[j], confidence, reason))
		}
	}
	return out
}

func newCandidate(a, b *model.Match, confidence float64, reason string) *model.MatchDuplicate {
	// Stable ordering so (a,b) and (b,a) record identically.
	first, second := a, b
	if first.ID > second.ID {
		first, second = second, first
	}
	return &model.MatchDuplicate{
		MatchID:    first.ID,
		OtherID:    second.ID,
		Confidence: confidence,
		Reason:     reason,
		Status:     model.DuplicateStatusOpen,
		CreatedAt:  time.Now().UTC(),
	}
}
