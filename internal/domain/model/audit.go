//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// AuditEntry records one mutating admin action for later review.
type AuditEntry struct {
	ID         string          `json:"id"          db:"id"`
	Actor      string          `json:"actor"       db:"actor"`
	Action     string          `json:"action"      db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id"   db:"entity_id"`
	Detail     json.RawMessage `json:"detail,omitempty" db:"detail"`
	CreatedAt  time.Time       `json:"created_at"  db:"created_at"`
}

// Validate checks invariants before persisting an audit entry.
func (e *AuditEntry) Validate() error {
	if strings.TrimSpace(e.Actor) == "" {
		return errors.New("actor is required")
	}
	if strings.TrimSpace(e.Action) == "" {
		return errors.New("action is required")
	}
	if strings.TrimSpace(e.EntityType) == "" {
		return errors.New("entity type is required")
	}
	return nil
}

// AuditListOptions controls paging and filtering for the audit log.
type AuditListOptions struct {
	Limit      int
	Offset     int
	Actor      *string
	EntityType *string
	EntityID   *string
	Since      *time.Time
}
