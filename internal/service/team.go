package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// suggestionCacheTTL is the default TTL for cached alias suggestions when the
// caller did not configure one.
const suggestionCacheTTL = 10 * time.Minute

// minSuggestionScore filters out candidate mappings too weak to show an operator.
const minSuggestionScore = 0.3

// Common noise tokens stripped before comparing club names across providers.
var teamNameNoise = map[string]bool{
	"fc": true, "cf": true, "afc": true, "sc": true, "ac": true,
	"club": true, "de": true, "the": true, "u": true,
}

// TeamServiceOptions groups dependencies for TeamService.
type TeamServiceOptions struct {
	Repo   core.TeamRepository  // Required: team repository
	Cache  core.CacheRepository // Optional: suggestion result cache
	Audit  auditRecorder        // Optional: admin action audit log
	Logger *slog.Logger         // Optional: structured logger
	TTL    time.Duration        // Optional: suggestion cache TTL
}

// TeamService manages canonical teams and the alias mappings that link
// provider spellings to them.
type TeamService struct {
	repo   core.TeamRepository
	cache  core.CacheRepository
	audit  auditRecorder
	logger *slog.Logger
	ttl    time.Duration
}

// NewTeamService constructs a new TeamService.
func NewTeamService(opts TeamServiceOptions) (*TeamService, error) {
	if opts.Repo == nil {
		return nil, errors.New("TeamRepository is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = suggestionCacheTTL
	}

	return &TeamService{
		repo:   opts.Repo,
		cache:  opts.Cache,
		audit:  opts.Audit,
		logger: logger.With("component", "team_service"),
		ttl:    ttl,
	}, nil
}

// GetByID returns one team.
func (s *TeamService) GetByID(ctx context.Context, id string) (*model.Team, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns teams with pagination and filters.
func (s *TeamService) List(ctx context.Context, opts model.TeamsListOptions) ([]*model.Team, error) {
	return s.repo.List(ctx, opts)
}

// Update applies a patch to a team.
func (s *TeamService) Update(ctx context.Context, params UpdateTeamParams) (*model.Team, error) {
	if params.Patch.Name != nil && strings.TrimSpace(*params.Patch.Name) == "" {
		return nil, apperrors.ValidationField("name", "team name cannot be empty")
	}

	team, err := s.repo.Update(ctx, params.ID, params.Patch)
	if err != nil {
		return nil, fmt.Errorf("update team: %w", err)
	}

	s.recordTeamAudit(ctx, auditEvent{
		Actor:      params.Actor,
		Action:     "team.update",
		EntityType: "team",
		EntityID:   team.ID,
	})
	return team, nil
}

// UpdateTeamParams groups parameters for TeamService.Update.
type UpdateTeamParams struct {
	ID    string
	Actor string
	Patch model.TeamPatch
}

// ListAliases returns the alias mappings for one team.
func (s *TeamService) ListAliases(ctx context.Context, teamID string) ([]*model.TeamAlias, error) {
	return s.repo.ListAliases(ctx, teamID)
}

// ListUnmapped returns provider names in a league with no alias yet.
func (s *TeamService) ListUnmapped(ctx context.Context, leagueID string, limit int) ([]*model.UnmappedName, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListUnmapped(ctx, leagueID, limit)
}

// AcceptSuggestionParams groups parameters for TeamService.AcceptSuggestion.
type AcceptSuggestionParams struct {
	Actor    string
	TeamID   string
	Provider string
	Incoming string
}

// AcceptSuggestion turns a suggested mapping into a persisted alias and
// clears the incoming name from the unmapped queue.
func (s *TeamService) AcceptSuggestion(ctx context.Context, params AcceptSuggestionParams) (*model.TeamAlias, error) {
	incoming := strings.TrimSpace(params.Incoming)
	if incoming == "" {
		return nil, apperrors.ValidationField("incoming", "incoming name is required")
	}

	alias, err := s.repo.AddAlias(ctx, &model.TeamAlias{
		TeamID:   params.TeamID,
		Alias:    incoming,
		Provider: params.Provider,
	})
	if err != nil {
		return nil, fmt.Errorf("add alias: %w", err)
	}

	if _, delErr := s.repo.DeleteUnmapped(ctx, params.Provider, incoming); delErr != nil {
		s.logger.WarnContext(ctx, "alias accepted but unmapped row not cleared",
			"provider", params.Provider, "name", incoming, "error", delErr)
	}
	s.invalidateSuggestions(ctx, params.Provider, incoming)

	s.recordTeamAudit(ctx, auditEvent{
		Actor:      params.Actor,
		Action:     "team.alias_accept",
		EntityType: "team",
		EntityID:   params.TeamID,
		Detail:     map[string]string{"provider": params.Provider, "incoming": incoming},
	})
	return alias, nil
}

// RejectSuggestion drops an incoming name from the unmapped queue without
// creating an alias.
func (s *TeamService) RejectSuggestion(ctx context.Context, actor string, params RejectSuggestionParams) error {
	incoming := strings.TrimSpace(params.Incoming)
	if incoming == "" {
		return apperrors.ValidationField("incoming", "incoming name is required")
	}

	ok, err := s.repo.DeleteUnmapped(ctx, params.Provider, incoming)
	if err != nil {
		return fmt.Errorf("delete unmapped name: %w", err)
	}
	if !ok {
		return apperrors.NotFoundf("unmapped name %q not found", incoming)
	}
	s.invalidateSuggestions(ctx, params.Provider, incoming)

	s.recordTeamAudit(ctx, auditEvent{
		Actor:      actor,
		Action:     "team.alias_reject",
		EntityType: "team",
		EntityID:   incoming,
		Detail:     map[string]string{"provider": params.Provider},
	})
	return nil
}

// RejectSuggestionParams groups parameters for TeamService.RejectSuggestion.
type RejectSuggestionParams struct {
	Provider string
	Incoming string
}

// SuggestAliasesParams groups parameters for TeamService.SuggestAliases.
type SuggestAliasesParams struct {
	LeagueID string
	Provider string
	Incoming string
	Limit    int
}

// SuggestAliases scores league teams against an incoming provider name and
// returns candidate mappings, strongest first. Results are cached because
// the unmapped queue re-requests the same names on every dashboard refresh.
func (s *TeamService) SuggestAliases(ctx context.Context, params SuggestAliasesParams) ([]*model.AliasSuggestion, error) {
	incoming := strings.TrimSpace(params.Incoming)
	if incoming == "" {
		return nil, apperrors.ValidationField("incoming", "incoming name is required")
	}
	limit := params.Limit
	if limit < 1 {
		limit = 5
	}

	cacheKey := suggestionCacheKey(params.Provider, incoming)
	if cached := s.cachedSuggestions(ctx, cacheKey); cached != nil {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	teams, err := s.repo.ListByLeague(ctx, params.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("list league teams: %w", err)
	}

	incomingTokens := nameTokens(incoming)
	suggestions := make([]*model.AliasSuggestion, 0, len(teams))
	for _, team := range teams {
		score := bestNameScore(incomingTokens, team)
		if score < minSuggestionScore {
			continue
		}
		suggestions = append(suggestions, &model.AliasSuggestion{
			Incoming: incoming,
			Provider: params.Provider,
			TeamID:   team.ID,
			TeamName: team.Name,
			Score:    score,
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})

	s.storeSuggestions(ctx, cacheKey, suggestions)
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func (s *TeamService) cachedSuggestions(ctx context.Context, key string) []*model.AliasSuggestion {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || len(raw) == 0 {
		return nil
	}
	var out []*model.AliasSuggestion
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func (s *TeamService) storeSuggestions(ctx context.Context, key string, suggestions []*model.AliasSuggestion) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(suggestions)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.DebugContext(ctx, "suggestion cache write failed", "error", err)
	}
}

func (s *TeamService) invalidateSuggestions(ctx context.Context, provider, incoming string) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Delete(ctx, suggestionCacheKey(provider, incoming)); err != nil {
		s.logger.DebugContext(ctx, "suggestion cache invalidation failed", "error", err)
	}
}

func suggestionCacheKey(provider, incoming string) string {
	return "alias_suggest:" + provider + ":" + strings.ToLower(incoming)
}

func (s *TeamService) recordTeamAudit(ctx context.Context, ev auditEvent) {
	if s.audit == nil {
		return
	}

	var detail json.RawMessage
	if len(ev.Detail) > 0 {
		detail, _ = json.Marshal(ev.Detail)
	}
	entry := &model.AuditEntry{
		Actor:      ev.Actor,
		Action:     ev.Action,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Detail:     detail,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record audit entry",
			"action", ev.Action, "error", err)
	}
}

// bestNameScore scores the incoming tokens against a team's full name, short
// name, and normalized key, keeping the strongest match.
func bestNameScore(incoming []string, team *model.Team) float64 {
	score := tokenOverlap(incoming, nameTokens(team.Name))
	if team.ShortName != "" {
		if s := tokenOverlap(incoming, nameTokens(team.ShortName)); s > score {
			score = s
		}
	}
	if team.NormalizedKey != "" {
		if s := tokenOverlap(incoming, nameTokens(team.NormalizedKey)); s > score {
			score = s
		}
	}
	return score
}

// nameTokens lowercases, strips non-alphanumerics, and removes noise tokens.
func nameTokens(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if teamNameNoise[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// tokenOverlap is the Jaccard similarity of two token sets.
func tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}

	shared := 0
	for t := range setA {
		if setB[t] {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
