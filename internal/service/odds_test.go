package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportwire/ingest-admin/config"
	"github.com/sportwire/ingest-admin/internal/domain/model"
	apperrors "github.com/sportwire/ingest-admin/internal/errors"
	"github.com/sportwire/ingest-admin/internal/testutil"
)

type stubOddsRepo struct {
	mu        sync.Mutex
	inserted  []*model.OddsAnomaly
	insertErr error
}

func (r *stubOddsRepo) InsertAnomaly(_ context.Context, anomaly *model.OddsAnomaly) (*model.OddsAnomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	stored := *anomaly
	stored.ID = "anom-1"
	r.inserted = append(r.inserted, &stored)
	return &stored, nil
}

func (r *stubOddsRepo) ListAnomalies(_ context.Context, _ model.AnomaliesListOptions) ([]*model.OddsAnomaly, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserted, nil
}

func (r *stubOddsRepo) CountAnomalies(_ context.Context, _ model.AnomaliesListOptions) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inserted), nil
}

func newOddsService(t *testing.T, repo *stubOddsRepo, rules ...AnomalyRule) *OddsService {
	t.Helper()
	svc, err := NewOddsService(OddsServiceOptions{
		Repo:   repo,
		Config: config.OddsConfig{StaleQuoteAfter: 30 * time.Minute},
		Rules:  rules,
	})
	require.NoError(t, err)
	svc.now = testutil.FixedTimeFunc(testutil.TestTime())
	return svc
}

func outcomesPayload(prices ...float64) json.RawMessage {
	type outcome struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}
	outcomes := make([]outcome, len(prices))
	for i, p := range prices {
		outcomes[i] = outcome{Name: "o", Price: p}
	}
	raw, _ := json.Marshal(map[string]any{"outcomes": outcomes})
	return raw
}

func freshQuote(payload json.RawMessage) *model.OddsQuote {
	return &model.OddsQuote{
		MatchID:   "mt-1",
		LeagueID:  "lg-1",
		Bookmaker: "bet365",
		SourceURL: "https://www.bet365.com/sport/football",
		Market:    "1x2",
		Payload:   payload,
		QuotedAt:  testutil.TestTime().Add(-time.Minute),
	}
}

func ruleNames(anomalies []*model.OddsAnomaly) []string {
	names := make([]string, len(anomalies))
	for i, a := range anomalies {
		names[i] = a.Rule
	}
	return names
}

func TestNewOddsService_RejectsBadRuleExpression(t *testing.T) {
	_, err := NewOddsService(OddsServiceOptions{
		Repo:  &stubOddsRepo{},
		Rules: []AnomalyRule{{Name: "broken", Expr: "][foo"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestEvaluate_CleanQuote(t *testing.T) {
	repo := &stubOddsRepo{}
	svc := newOddsService(t, repo)

	// 1/2.0 + 1/3.5 + 1/3.8 = 1.049, inside the probability band.
	got, err := svc.Evaluate(context.Background(), freshQuote(outcomesPayload(2.0, 3.5, 3.8)))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, repo.inserted)
}

func TestEvaluate_StaleQuote(t *testing.T) {
	repo := &stubOddsRepo{}
	svc := newOddsService(t, repo)

	quote := freshQuote(outcomesPayload(2.0, 3.5, 3.8))
	quote.QuotedAt = testutil.TestTime().Add(-time.Hour)

	got, err := svc.Evaluate(context.Background(), quote)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale_quote"}, ruleNames(got))
	assert.Equal(t, model.AnomalySeverityWarning, got[0].Severity)
	assert.Equal(t, "bet365.com", got[0].BookmakerDomain)
}

func TestEvaluate_ZeroQuotedAtIsStale(t *testing.T) {
	svc := newOddsService(t, &stubOddsRepo{})

	quote := freshQuote(nil)
	quote.QuotedAt = time.Time{}

	got, err := svc.Evaluate(context.Background(), quote)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale_quote"}, ruleNames(got))
}

func TestEvaluate_NonPositiveOdds(t *testing.T) {
	svc := newOddsService(t, &stubOddsRepo{})

	got, err := svc.Evaluate(context.Background(), freshQuote(outcomesPayload(0.95, 2.0)))
	require.NoError(t, err)

	// A broken price short-circuits the probability checks.
	assert.Equal(t, []string{"non_positive_odds"}, ruleNames(got))
	assert.Equal(t, model.AnomalySeverityCritical, got[0].Severity)
}

func TestEvaluate_ImpliedProbabilityLow(t *testing.T) {
	svc := newOddsService(t, &stubOddsRepo{})

	// 3 * 1/4.0 = 0.75, an arbitrageable book.
	got, err := svc.Evaluate(context.Background(), freshQuote(outcomesPayload(4.0, 4.0, 4.0)))
	require.NoError(t, err)
	assert.Equal(t, []string{"implied_probability_low"}, ruleNames(got))
	assert.Equal(t, model.AnomalySeverityCritical, got[0].Severity)
}

func TestEvaluate_ImpliedProbabilityHigh(t *testing.T) {
	svc := newOddsService(t, &stubOddsRepo{})

	// 1/1.5 + 1/2.0 + 1/2.5 = 1.567, a predatory margin.
	got, err := svc.Evaluate(context.Background(), freshQuote(outcomesPayload(1.5, 2.0, 2.5)))
	require.NoError(t, err)
	assert.Equal(t, []string{"implied_probability_high"}, ruleNames(got))
	assert.Equal(t, model.AnomalySeverityWarning, got[0].Severity)
}

func TestEvaluate_PayloadRuleFires(t *testing.T) {
	repo := &stubOddsRepo{}
	svc := newOddsService(t, repo, AnomalyRule{
		Name:     "market_suspended",
		Expr:     "suspended",
		Severity: model.AnomalySeverityInfo,
		Detail:   "market flagged suspended by provider",
	})

	raw, _ := json.Marshal(map[string]any{
		"suspended": true,
		"outcomes":  []map[string]any{{"name": "home", "price": 2.0}, {"name": "away", "price": 2.1}},
	})
	got, err := svc.Evaluate(context.Background(), freshQuote(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"market_suspended"}, ruleNames(got))
	assert.Equal(t, model.AnomalySeverityInfo, got[0].Severity)
	assert.Equal(t, "market flagged suspended by provider", got[0].Detail)
}

func TestEvaluate_PayloadRuleNotFiring(t *testing.T) {
	svc := newOddsService(t, &stubOddsRepo{}, AnomalyRule{Name: "market_suspended", Expr: "suspended"})

	raw, _ := json.Marshal(map[string]any{
		"suspended": false,
		"outcomes":  []map[string]any{{"name": "home", "price": 2.0}, {"name": "away", "price": 2.1}},
	})
	got, err := svc.Evaluate(context.Background(), freshQuote(raw))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEvaluate_InvalidRuleSeverityDowngradesToWarning(t *testing.T) {
	svc := newOddsService(t, &stubOddsRepo{}, AnomalyRule{
		Name:     "always",
		Expr:     "match_id",
		Severity: model.AnomalySeverity("fatal"),
	})

	raw, _ := json.Marshal(map[string]any{
		"match_id": "mt-1",
		"outcomes": []map[string]any{{"name": "home", "price": 2.0}, {"name": "away", "price": 2.1}},
	})
	got, err := svc.Evaluate(context.Background(), freshQuote(raw))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.AnomalySeverityWarning, got[0].Severity)
}

func TestEvaluate_MalformedPayload(t *testing.T) {
	svc := newOddsService(t, &stubOddsRepo{}, AnomalyRule{Name: "any", Expr: "suspended"})

	quote := freshQuote(json.RawMessage(`{not json`))
	got, err := svc.Evaluate(context.Background(), quote)
	require.NoError(t, err)
	assert.Equal(t, []string{"malformed_payload"}, ruleNames(got))
	assert.Equal(t, model.AnomalySeverityCritical, got[0].Severity)
}

func TestEvaluate_RequiresIdentity(t *testing.T) {
	svc := newOddsService(t, &stubOddsRepo{})

	_, err := svc.Evaluate(context.Background(), nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Evaluate(context.Background(), &model.OddsQuote{MatchID: "mt-1"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(false))
	assert.True(t, truthy(true))
	assert.False(t, truthy(""))
	assert.True(t, truthy("x"))
	assert.False(t, truthy([]any{}))
	assert.True(t, truthy([]any{1}))
	assert.False(t, truthy(map[string]any{}))
	assert.False(t, truthy(float64(0)))
	assert.True(t, truthy(float64(2)))
}

func TestBookmakerDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://www.bet365.com/sport", "bet365.com"},
		{"odds.bwin.co.uk", "bwin.co.uk"},
		{"http://sports.williamhill.es/bet", "williamhill.es"},
		{"localhost:9000", "localhost"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BookmakerDomain(tc.in), "input %q", tc.in)
	}
}
