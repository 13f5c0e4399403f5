//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const maxTeamNameLen = 255

// Team represents a club/side under a league.
type Team struct {
	ID            string    `json:"id"             db:"id"`
	LeagueID      string    `json:"league_id"      db:"league_id"`
	Name          string    `json:"name"           db:"name"`
	ShortName     string    `json:"short_name"     db:"short_name"`
	ExternalKey   string    `json:"external_key"   db:"external_key"`
	NormalizedKey string    `json:"normalized_key" db:"normalized_key"`
	CreatedAt     time.Time `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"     db:"updated_at"`
}

// Validate checks invariants before persisting a team.
func (t *Team) Validate() error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return errors.New("team name is required")
	}
	if utf8.RuneCountInString(name) > maxTeamNameLen {
		return errors.New("team name is too long")
	}
	if t.LeagueID == "" {
		return errors.New("league id is required")
	}
	return nil
}

// TeamAlias maps an incoming provider spelling to a canonical team.
type TeamAlias struct {
	ID        string    `json:"id"         db:"id"`
	TeamID    string    `json:"team_id"    db:"team_id"`
	Alias     string    `json:"alias"      db:"alias"`
	Provider  string    `json:"provider"   db:"provider"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AliasSuggestion is a scored candidate mapping from an unmapped incoming
// name to an existing team, produced by the suggestion matcher.
type AliasSuggestion struct {
	Incoming  string    `json:"incoming"`
	Provider  string    `json:"provider"`
	TeamID    string    `json:"team_id"`
	TeamName  string    `json:"team_name"`
	Score     float64   `json:"score"` // 0..1, higher is a stronger match
	FirstSeen time.Time `json:"first_seen"`
}

// UnmappedName is an incoming provider name with no alias yet.
type UnmappedName struct {
	Name      string    `json:"name"       db:"name"`
	Provider  string    `json:"provider"   db:"provider"`
	LeagueID  string    `json:"league_id"  db:"league_id"`
	FirstSeen time.Time `json:"first_seen" db:"first_seen"`
	SeenCount int       `json:"seen_count" db:"seen_count"`
}

// TeamsListOptions controls paging and filtering for listing teams.
type TeamsListOptions struct {
	Limit    int
	Offset   int
	Q        *string // substring match on name (ILIKE)
	LeagueID *string // exact match
	Sort     string  // allowed: "created_at", "name"
	Dir      string  // allowed: "asc", "desc"
}

// TeamPatch carries optional field updates for a team.
type TeamPatch struct {
	Name      *string `json:"name,omitempty"`
	ShortName *string `json:"short_name,omitempty"`
}
