//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
)

// Referee represents an official whose discipline profile is tracked.
type Referee struct {
	ID                string    `json:"id"                  db:"id"`
	Name              string    `json:"name"                db:"name"`
	Country           string    `json:"country"             db:"country"`
	ExternalKey       string    `json:"external_key"        db:"external_key"`
	MatchesOfficiated int       `json:"matches_officiated"  db:"matches_officiated"`
	FoulsPerMatch     float64   `json:"fouls_per_match"     db:"fouls_per_match"`
	YellowsPerMatch   float64   `json:"yellows_per_match"   db:"yellows_per_match"`
	RedsPerMatch      float64   `json:"reds_per_match"      db:"reds_per_match"`
	PenaltiesPerMatch float64   `json:"penalties_per_match" db:"penalties_per_match"`
	CreatedAt         time.Time `json:"created_at"          db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"          db:"updated_at"`
}

// Validate checks invariants before persisting a referee.
func (r *Referee) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("referee name is required")
	}
	return nil
}

// StrictnessIndex is the composite discipline score for a referee relative
// to a league baseline. Sample indicates how many matches informed it;
// consumers should treat a small sample as low confidence.
type StrictnessIndex struct {
	RefereeID  string               `json:"referee_id"`
	Index      float64              `json:"index"` // 1.0 == league average
	Sample     int                  `json:"sample"`
	Components StrictnessComponents `json:"components"`
}

// StrictnessComponents breaks the index down per signal.
type StrictnessComponents struct {
	Fouls     float64 `json:"fouls"`
	Yellows   float64 `json:"yellows"`
	Reds      float64 `json:"reds"`
	Penalties float64 `json:"penalties"`
}

// RefereesListOptions controls paging and filtering for listing referees.
type RefereesListOptions struct {
	Limit   int
	Offset  int
	Q       *string // substring match on name (ILIKE)
	Country *string // exact match
	Sort    string  // allowed: "created_at", "name", "matches_officiated"
	Dir     string  // allowed: "asc", "desc"
}

// RefereePatch carries optional field updates for a referee.
type RefereePatch struct {
	Name    *string `json:"name,omitempty"`
	Country *string `json:"country,omitempty"`
}
