//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Strategy represents a genetic betting strategy tracked by the lab dashboard.
type Strategy struct {
	ID         string          `json:"id"          db:"id"`
	Name       string          `json:"name"        db:"name"`
	Generation int             `json:"generation"  db:"generation"`
	Genome     json.RawMessage `json:"genome"      db:"genome"`
	Fitness    *float64        `json:"fitness,omitempty" db:"fitness"`
	Archived   bool            `json:"archived"    db:"archived"`
	CreatedAt  time.Time       `json:"created_at"  db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"  db:"updated_at"`
}

// Validate checks invariants before persisting a strategy.
func (s *Strategy) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("strategy name is required")
	}
	if len(s.Genome) == 0 {
		return errors.New("genome is required")
	}
	return nil
}

// SubjectKey returns the watch-set subject key for this strategy's backtests.
func (s *Strategy) SubjectKey() string {
	return "strategy:" + s.ID
}

// BacktestRun links a strategy to one backtest job and its outcome summary.
type BacktestRun struct {
	ID         string          `json:"id"          db:"id"`
	StrategyID string          `json:"strategy_id" db:"strategy_id"`
	JobID      string          `json:"job_id"      db:"job_id"`
	Status     JobStatus       `json:"status"      db:"status"`
	Summary    json.RawMessage `json:"summary,omitempty" db:"summary"`
	StartedAt  time.Time       `json:"started_at"  db:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
}

// StrategiesListOptions controls paging and filtering for listing strategies.
type StrategiesListOptions struct {
	Limit    int
	Offset   int
	Q        *string // substring match on name (ILIKE)
	Archived *bool
	Sort     string // allowed: "created_at", "fitness", "generation"
	Dir      string // allowed: "asc", "desc"
}
