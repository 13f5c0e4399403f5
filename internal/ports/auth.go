// Package ports holds the auth-facing interfaces the service layer depends
// on. Concrete implementations live under internal/adapters.
package ports

import (
	"context"

	domainauth "github.com/sportwire/ingest-admin/internal/domain/auth"
)

// BeginInput carries inputs for initiating a login flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for completing a login flow.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// AuthProvider runs an authentication flow against an identity provider.
// The dev-auth adapter short-circuits both calls; the OIDC adapter performs
// the real redirect and code exchange.
type AuthProvider interface {
	// Begin returns the provider auth URL plus the opaque state and nonce the
	// caller must retain for Exchange.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange verifies state and nonce and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// SessionStore persists login sessions keyed by session id.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper resolves the application role granted to a set of IdP groups.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}
