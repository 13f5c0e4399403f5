//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"strings"
	"time"
)

// Match represents a fixture ingested from a provider feed.
type Match struct {
	ID         string    `json:"id"          db:"id"`
	SeasonID   string    `json:"season_id"   db:"season_id"`
	LeagueID   string    `json:"league_id"   db:"league_id"`
	HomeTeamID string    `json:"home_team_id" db:"home_team_id"`
	AwayTeamID string    `json:"away_team_id" db:"away_team_id"`
	RefereeID  *string   `json:"referee_id,omitempty" db:"referee_id"`
	KickoffAt  time.Time `json:"kickoff_at"  db:"kickoff_at"`
	Provider   string    `json:"provider"    db:"provider"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}

// DuplicateStatus tracks the review state of a detected duplicate pair.
type DuplicateStatus string

const (
	DuplicateStatusOpen      DuplicateStatus = "open"
	DuplicateStatusMerged    DuplicateStatus = "merged"
	DuplicateStatusDismissed DuplicateStatus = "dismissed"
)

// Valid reports whether the duplicate status is supported.
func (s DuplicateStatus) Valid() bool {
	switch s {
	case DuplicateStatusOpen, DuplicateStatusMerged, DuplicateStatusDismissed:
		return true
	default:
		return false
	}
}

// MatchDuplicate is a detected pair of fixtures that likely describe the same
// real-world match, with a confidence in [0,1]. Resolution is an operator
// decision (merge or dismiss), never automatic.
type MatchDuplicate struct {
	ID         string          `json:"id"          db:"id"`
	MatchID    string          `json:"match_id"    db:"match_id"`
	OtherID    string          `json:"other_id"    db:"other_id"`
	Confidence float64         `json:"confidence"  db:"confidence"`
	Reason     string          `json:"reason"      db:"reason"`
	Status     DuplicateStatus `json:"status"      db:"status"`
	ResolvedBy *string         `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt  time.Time       `json:"created_at"  db:"created_at"`
}

// DuplicateKey builds the normalized grouping key used by duplicate
// detection: league + kickoff bucket + unordered team pair.
func DuplicateKey(leagueID string, kickoff time.Time, bucket time.Duration, teamA, teamB string) string {
	if bucket <= 0 {
		bucket = time.Hour
	}
	a, b := teamA, teamB
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return leagueID + "|" + kickoff.UTC().Truncate(bucket).Format(time.RFC3339) + "|" + a + "|" + b
}

// DuplicatesListOptions controls paging and filtering for listing duplicates.
type DuplicatesListOptions struct {
	Limit         int
	Offset        int
	Status        *DuplicateStatus
	LeagueID      *string
	MinConfidence *float64
}
