package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	// RoleAdmin may change league configuration, resolve duplicates, and
	// manage strategies in addition to everything operators can do.
	RoleAdmin Role = "admin"

	// RoleOperator may trigger and resume ingest jobs, accept alias
	// suggestions, and untrack watched jobs.
	RoleOperator Role = "operator"

	// RoleViewer is the default role for authenticated users. Read-only.
	RoleViewer Role = "viewer"

	// RoleGuest is an unauthenticated principal.
	RoleGuest Role = "guest"
)

// Identity represents the authenticated principal returned by an IdP.
// Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (e.g., preferred_username or sub)
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	ExpiresAt time.Time // absolute expiry from IdP token
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsGuest returns true if the session role is guest.
func (s Session) IsGuest() bool { return s.Role == RoleGuest }

// CanOperate reports whether the session may trigger ingest operations.
func (s Session) CanOperate() bool {
	return s.Role == RoleAdmin || s.Role == RoleOperator
}

// IsAdmin reports whether the session holds the admin role.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }
