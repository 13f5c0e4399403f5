package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/net/publicsuffix"

	"github.com/sportwire/ingest-admin/config"
	"github.com/sportwire/ingest-admin/internal/core"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
)

// Implied-probability bounds for a fully-enumerated market. Below the floor
// the book would be arbitrageable; above the ceiling the margin is predatory
// or the feed is broken.
const (
	impliedProbabilityFloor   = 0.90
	impliedProbabilityCeiling = 1.25
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// AnomalyRule is one configurable check evaluated against a quote's payload.
// The rule fires when Expr evaluates truthy (non-nil, non-false, non-empty).
type AnomalyRule struct {
	Name     string
	Expr     string
	Severity model.AnomalySeverity
	Detail   string
}

// OddsServiceOptions groups dependencies for OddsService.
type OddsServiceOptions struct {
	Repo      core.OddsRepository // Required: odds anomaly repository
	Config    config.OddsConfig   // Required: odds configuration
	Rules     []AnomalyRule       // Optional: extra payload rules
	Evaluator JMESPathEvaluator   // Optional: defaults to go-jmespath
	Logger    *slog.Logger        // Optional: structured logger
}

// OddsService evaluates bookmaker quotes against anomaly rules and records
// what fires for operator review.
type OddsService struct {
	repo   core.OddsRepository
	config config.OddsConfig
	rules  []AnomalyRule
	jems   JMESPathEvaluator
	logger *slog.Logger
	now    func() time.Time
}

// NewOddsService constructs a new OddsService, validating rule expressions up front.
func NewOddsService(opts OddsServiceOptions) (*OddsService, error) {
	if opts.Repo == nil {
		return nil, errors.New("OddsRepository is required")
	}

	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}

	for _, rule := range opts.Rules {
		if strings.TrimSpace(rule.Name) == "" {
			return nil, errors.New("anomaly rule name is required")
		}
		if err := jems.Validate(rule.Expr); err != nil {
			return nil, fmt.Errorf("anomaly rule %q: invalid expression: %w", rule.Name, err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OddsService{
		repo:   opts.Repo,
		config: opts.Config,
		rules:  opts.Rules,
		jems:   jems,
		logger: logger.With("component", "odds_service"),
		now:    time.Now,
	}, nil
}

// ListAnomalies returns recorded anomalies with pagination and filters.
func (s *OddsService) ListAnomalies(ctx context.Context, opts model.AnomaliesListOptions) ([]*model.OddsAnomaly, error) {
	return s.repo.ListAnomalies(ctx, opts)
}

// CountAnomalies returns the number of anomalies matching the filters.
func (s *OddsService) CountAnomalies(ctx context.Context, opts model.AnomaliesListOptions) (int, error) {
	return s.repo.CountAnomalies(ctx, opts)
}

// Evaluate runs all checks against one quote, persisting and returning every
// anomaly that fires. A quote with no findings returns an empty slice.
func (s *OddsService) Evaluate(ctx context.Context, quote *model.OddsQuote) ([]*model.OddsAnomaly, error) {
	if quote == nil {
		return nil, apperrors.Validation("quote is required")
	}
	if quote.MatchID == "" || quote.Bookmaker == "" {
		return nil, apperrors.Validation("quote match id and bookmaker are required")
	}

	findings := s.builtinFindings(quote)
	payloadFindings, err := s.ruleFindings(quote)
	if err != nil {
		return nil, err
	}
	findings = append(findings, payloadFindings...)

	domain := BookmakerDomain(quote.SourceURL)
	out := make([]*model.OddsAnomaly, 0, len(findings))
	for _, f := range findings {
		anomaly := &model.OddsAnomaly{
			MatchID:         quote.MatchID,
			LeagueID:        quote.LeagueID,
			Bookmaker:       quote.Bookmaker,
			BookmakerDomain: domain,
			Market:          quote.Market,
			Rule:            f.rule,
			Severity:        f.severity,
			Observed:        quote.Payload,
			Detail:          f.detail,
			ObservedAt:      quote.QuotedAt,
		}
		stored, insErr := s.repo.InsertAnomaly(ctx, anomaly)
		if insErr != nil {
			return nil, fmt.Errorf("record anomaly %q: %w", f.rule, insErr)
		}
		out = append(out, stored)
	}

	if len(out) > 0 {
		s.logger.InfoContext(ctx, "odds anomalies recorded",
			"match_id", quote.MatchID, "bookmaker", quote.Bookmaker, "count", len(out))
	}
	return out, nil
}

type finding struct {
	rule     string
	severity model.AnomalySeverity
	detail   string
}

// builtinFindings runs the structural checks every quote gets regardless of
// configured rules.
func (s *OddsService) builtinFindings(quote *model.OddsQuote) []finding {
	var findings []finding

	if age := s.now().Sub(quote.QuotedAt); quote.QuotedAt.IsZero() || age > s.config.StaleQuoteAfter {
		findings = append(findings, finding{
			rule:     "stale_quote",
			severity: model.AnomalySeverityWarning,
			detail:   fmt.Sprintf("quote older than %s", s.config.StaleQuoteAfter),
		})
	}

	prices := quotePrices(quote.Payload)
	if len(prices) == 0 {
		return findings
	}

	implied := 0.0
	for _, p := range prices {
		if p <= 1.0 {
			findings = append(findings, finding{
				rule:     "non_positive_odds",
				severity: model.AnomalySeverityCritical,
				detail:   fmt.Sprintf("decimal price %.3f is not a valid quote", p),
			})
			return findings
		}
		implied += 1.0 / p
	}

	if implied < impliedProbabilityFloor {
		findings = append(findings, finding{
			rule:     "implied_probability_low",
			severity: model.AnomalySeverityCritical,
			detail:   fmt.Sprintf("implied probability sum %.3f below %.2f", implied, impliedProbabilityFloor),
		})
	}
	if implied > impliedProbabilityCeiling {
		findings = append(findings, finding{
			rule:     "implied_probability_high",
			severity: model.AnomalySeverityWarning,
			detail:   fmt.Sprintf("implied probability sum %.3f above %.2f", implied, impliedProbabilityCeiling),
		})
	}
	return findings
}

// ruleFindings evaluates the configured JMESPath rules against the decoded payload.
func (s *OddsService) ruleFindings(quote *model.OddsQuote) ([]finding, error) {
	if len(s.rules) == 0 || len(quote.Payload) == 0 {
		return nil, nil
	}

	var payload any
	if err := json.Unmarshal(quote.Payload, &payload); err != nil {
		return []finding{{
			rule:     "malformed_payload",
			severity: model.AnomalySeverityCritical,
			detail:   "payload is not valid JSON",
		}}, nil
	}

	var findings []finding
	for _, rule := range s.rules {
		result, err := s.jems.Evaluate(rule.Expr, payload)
		if err != nil {
			return nil, fmt.Errorf("evaluate rule %q: %w", rule.Name, err)
		}
		if !truthy(result) {
			continue
		}
		severity := rule.Severity
		if !severity.Valid() {
			severity = model.AnomalySeverityWarning
		}
		findings = append(findings, finding{
			rule:     rule.Name,
			severity: severity,
			detail:   rule.Detail,
		})
	}
	return findings, nil
}

// quotePrices pulls the decimal prices from the canonical payload shape
// {"outcomes":[{"name":...,"price":...}]}. Unknown shapes yield nothing;
// the configurable rules handle provider-specific bodies.
func quotePrices(payload json.RawMessage) []float64 {
	if len(payload) == 0 {
		return nil
	}
	var p struct {
		Outcomes []struct {
			Price float64 `json:"price"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil
	}
	prices := make([]float64, 0, len(p.Outcomes))
	for _, o := range p.Outcomes {
		prices = append(prices, o.Price)
	}
	return prices
}

// truthy reports whether a JMESPath result should fire a rule.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	case float64:
		return val != 0
	default:
		return true
	}
}

// BookmakerDomain reduces a quote source URL to its eTLD+1 so anomalies from
// regional mirrors of the same book group together.
func BookmakerDomain(sourceURL string) string {
	raw := strings.TrimSpace(sourceURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld1
}
