//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// AnomalySeverity grades how far an odds observation sits outside its expected band.
type AnomalySeverity string

const (
	AnomalySeverityInfo     AnomalySeverity = "info"
	AnomalySeverityWarning  AnomalySeverity = "warning"
	AnomalySeverityCritical AnomalySeverity = "critical"
)

// Valid reports whether the anomaly severity is supported.
func (s AnomalySeverity) Valid() bool {
	switch s {
	case AnomalySeverityInfo, AnomalySeverityWarning, AnomalySeverityCritical:
		return true
	default:
		return false
	}
}

// ParseAnomalySeverity normalizes a severity string and reports whether it is supported.
func ParseAnomalySeverity(value string) (AnomalySeverity, bool) {
	s := AnomalySeverity(strings.ToLower(strings.TrimSpace(value)))
	if s.Valid() {
		return s, true
	}
	return "", false
}

// OddsAnomaly is one flagged odds observation: a bookmaker quote that broke
// an anomaly rule (margin out of band, stale quote, impossible implied
// probability sum, etc.).
type OddsAnomaly struct {
	ID              string          `json:"id"               db:"id"`
	MatchID         string          `json:"match_id"         db:"match_id"`
	LeagueID        string          `json:"league_id"        db:"league_id"`
	Bookmaker       string          `json:"bookmaker"        db:"bookmaker"`
	BookmakerDomain string          `json:"bookmaker_domain" db:"bookmaker_domain"`
	Market          string          `json:"market"           db:"market"`
	Rule            string          `json:"rule"             db:"rule"`
	Severity        AnomalySeverity `json:"severity"         db:"severity"`
	Observed        json.RawMessage `json:"observed"         db:"observed"`
	Detail          string          `json:"detail"           db:"detail"`
	ObservedAt      time.Time       `json:"observed_at"      db:"observed_at"`
	CreatedAt       time.Time       `json:"created_at"       db:"created_at"`
}

// OddsQuote is the raw shape emitted by bookmaker feeds, evaluated by the
// anomaly rules. Payload keeps the provider-specific body for rule
// expressions to query.
type OddsQuote struct {
	MatchID   string          `json:"match_id"`
	LeagueID  string          `json:"league_id"`
	Bookmaker string          `json:"bookmaker"`
	SourceURL string          `json:"source_url"`
	Market    string          `json:"market"`
	Payload   json.RawMessage `json:"payload"`
	QuotedAt  time.Time       `json:"quoted_at"`
}

// AnomaliesListOptions controls paging and filtering for listing odds anomalies.
type AnomaliesListOptions struct {
	Limit     int
	Offset    int
	LeagueID  *string
	Bookmaker *string
	Severity  *AnomalySeverity
	Since     *time.Time
	Sort      string // allowed: "observed_at", "severity"
	Dir       string // allowed: "asc", "desc"
}
