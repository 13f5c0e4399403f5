//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxLeagueNameLen = 255
)

// IngestMode controls whether a league participates in automated ingestion.
type IngestMode string

const (
	IngestModeActive IngestMode = "active"
	IngestModePaused IngestMode = "paused"
)

// Valid reports whether the ingest mode is supported.
func (m IngestMode) Valid() bool {
	switch m {
	case IngestModeActive, IngestModePaused:
		return true
	default:
		return false
	}
}

// ParseIngestMode normalizes an ingest mode string and reports whether it is supported.
func ParseIngestMode(value string) (IngestMode, bool) {
	mode := IngestMode(strings.ToLower(strings.TrimSpace(value)))
	if mode.Valid() {
		return mode, true
	}
	return "", false
}

// League represents a competition whose fixtures and odds are ingested.
type League struct {
	ID              string     `json:"id"                          db:"id"`
	Name            string     `json:"name"                        db:"name"`
	Country         string     `json:"country"                     db:"country"`
	Sport           string     `json:"sport"                       db:"sport"`
	ExternalKey     string     `json:"external_key"                db:"external_key"`
	IngestMode      IngestMode `json:"ingest_mode"                 db:"ingest_mode"`
	Tier            int        `json:"tier"                        db:"tier"`
	LastDeepIngest  *time.Time `json:"last_deep_ingest,omitempty"  db:"last_deep_ingest"`
	LastMetricsSync *time.Time `json:"last_metrics_sync,omitempty" db:"last_metrics_sync"`
	CreatedAt       time.Time  `json:"created_at"                  db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"                  db:"updated_at"`
}

// Validate checks invariants before persisting a league.
func (l *League) Validate() error {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		return errors.New("league name is required")
	}
	if utf8.RuneCountInString(name) > maxLeagueNameLen {
		return errors.New("league name is too long")
	}
	if !l.IngestMode.Valid() {
		return errors.New("invalid ingest mode")
	}
	return nil
}

// Season represents one edition of a league (e.g. "2025/26").
type Season struct {
	ID        string    `json:"id"         db:"id"`
	LeagueID  string    `json:"league_id"  db:"league_id"`
	Label     string    `json:"label"      db:"label"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date"   db:"end_date"`
	Current   bool      `json:"current"    db:"current"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SubjectKey returns the watch-set subject key for this season.
func (s *Season) SubjectKey() string {
	return "season:" + s.ID
}

// LeaguesListOptions controls paging and filtering for listing leagues.
// Q matches name via ILIKE substring; Sport and IngestMode match exactly.
type LeaguesListOptions struct {
	Limit      int
	Offset     int
	Q          *string
	Sport      *string
	IngestMode *IngestMode
	Sort       string // allowed: "created_at", "name", "tier"
	Dir        string // allowed: "asc", "desc"
}

// LeaguePatch carries optional field updates for a league.
type LeaguePatch struct {
	Name       *string     `json:"name,omitempty"`
	Tier       *int        `json:"tier,omitempty"`
	IngestMode *IngestMode `json:"ingest_mode,omitempty"`
}
