package devauth

// Package devauth provides a config-driven AuthProvider for local development.
// It skips the IdP round trip entirely: Begin points the browser straight at
// our own callback and Exchange hands back the identity from configuration.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	domainauth "github.com/sportwire/ingest-admin/internal/domain/auth"
	"github.com/sportwire/ingest-admin/internal/ports"
)

const (
	defaultSessionDuration = 8 * time.Hour

	// devCode is the placeholder authorization code sent to the callback.
	devCode = "dev"
)

// Config controls the dev identity. UserID and Email are required; Groups
// decide which role the mapper assigns, so an empty list yields a viewer.
type Config struct {
	UserID          string
	Email           string
	Groups          []string
	SessionDuration time.Duration // defaults to 8h when zero
}

// Provider implements ports.AuthProvider for local development.
type Provider struct {
	cfg Config
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = defaultSessionDuration
	}
	cfg.Groups = append([]string(nil), cfg.Groups...)
	return &Provider{cfg: cfg}, nil
}

// Begin returns a local callback URL plus freshly generated state and nonce.
// The handler still performs its usual state/nonce round trip so the dev flow
// exercises the same cookie plumbing as the real one.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomToken()
	if err != nil {
		return "", "", "", err
	}
	nonce, err := randomToken()
	if err != nil {
		return "", "", "", err
	}
	return "/auth/callback?code=" + devCode + "&state=" + state, state, nonce, nil
}

// Exchange ignores the code and returns the configured identity with a fresh expiry.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	return domainauth.Identity{
		UserID:    p.cfg.UserID,
		FirstName: "Dev",
		LastName:  "User",
		Email:     p.cfg.Email,
		Groups:    append([]string(nil), p.cfg.Groups...),
		ExpiresAt: time.Now().Add(p.cfg.SessionDuration),
	}, nil
}

func randomToken() (string, error) {
	var b [18]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
