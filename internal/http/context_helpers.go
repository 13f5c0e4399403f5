package httpx

import (
	"context"

	domainauth "github.com/sportwire/ingest-admin/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// SetSessionInContext returns a child context that carries the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the session from context and whether one is present.
func SessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	if session, ok := ctx.Value(sessionKey{}).(*domainauth.Session); ok && session != nil {
		return session, true
	}
	return nil, false
}

// ActorFromContext returns the acting user's identity for audit entries.
// Requests that passed auth middleware always carry a session; "anonymous"
// only appears on routes that skip auth (dev deployments).
func ActorFromContext(ctx context.Context) string {
	if s, ok := SessionFromContext(ctx); ok && s.UserID != "" {
		return s.UserID
	}
	return "anonymous"
}
