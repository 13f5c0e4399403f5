package oidc

// Package oidc implements ports.AuthProvider against a standards-compliant
// OIDC identity provider using go-oidc for discovery and token verification.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/sportwire/ingest-admin/internal/domain/auth"
	"github.com/sportwire/ingest-admin/internal/ports"
)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string // space-separated, e.g. "openid profile email groups"
	DiscoveryURL string
	LogoutURL    string
	HTTPClient   *http.Client // optional; defaults to a 30s-timeout client
}

// Provider implements the AuthProvider interface using OIDC/OAuth2.
type Provider struct {
	config    *oauth2.Config
	logoutURL string

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// NewProvider fetches the discovery document once and builds the OAuth2
// endpoints and ID token verifier from it.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	switch {
	case cfg.ClientID == "":
		return nil, errors.New("client ID is required")
	case cfg.ClientSecret == "":
		return nil, errors.New("client secret is required")
	case cfg.RedirectURL == "":
		return nil, errors.New("redirect URL is required")
	case cfg.DiscoveryURL == "":
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(ctx, issuerFromDiscoveryURL(cfg.DiscoveryURL))
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     op.Endpoint(),
		},
		logoutURL:    cfg.LogoutURL,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

// issuerFromDiscoveryURL strips the well-known suffix so operators can
// configure either the issuer or the full discovery document URL.
func issuerFromDiscoveryURL(u string) string {
	issuer := strings.TrimSuffix(u, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	return strings.TrimSuffix(issuer, ".well-known/openid-configuration")
}

// LogoutURL returns the configured IdP logout endpoint, if any.
func (p *Provider) LogoutURL() string { return p.logoutURL }

// Begin generates state and nonce and returns the provider authorization URL.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := randomToken(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// Exchange swaps the authorization code for tokens, verifies the ID token and
// nonce, and maps the claims into a domain identity. Missing profile fields
// are backfilled from the userinfo endpoint.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code: %w", err)
	}

	claims, err := p.verifiedClaims(ctx, token, in.Nonce)
	if err != nil {
		return domainauth.Identity{}, err
	}

	identity := identityFromClaims(claims)
	if identity.UserID == "" || identity.Email == "" {
		if err := p.backfillFromUserInfo(ctx, token.AccessToken, &identity); err != nil {
			return domainauth.Identity{}, fmt.Errorf("userinfo: %w", err)
		}
	}

	identity.ExpiresAt = time.Now().Add(time.Hour)
	if !token.Expiry.IsZero() {
		identity.ExpiresAt = token.Expiry
	}
	return identity, nil
}

// idClaims is the subset of standard OIDC claims we consume.
type idClaims struct {
	Sub               string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	GivenName         string   `json:"given_name"`
	FamilyName        string   `json:"family_name"`
	Email             string   `json:"email"`
	Groups            []string `json:"groups"`
	Nonce             string   `json:"nonce"`
}

func (p *Provider) verifiedClaims(ctx context.Context, token *oauth2.Token, expectedNonce string) (idClaims, error) {
	var claims idClaims

	rawID, ok := token.Extra("id_token").(string)
	if !ok || rawID == "" {
		return claims, errors.New("token response missing id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return claims, fmt.Errorf("verify id_token: %w", err)
	}
	if err := idToken.Claims(&claims); err != nil {
		return claims, fmt.Errorf("parse id_token claims: %w", err)
	}
	if claims.Nonce != expectedNonce {
		return claims, errors.New("nonce mismatch")
	}
	return claims, nil
}

// identityFromClaims maps standard claims to a domain identity, preferring
// preferred_username over sub as the stable user ID.
func identityFromClaims(c idClaims) domainauth.Identity {
	userID := c.PreferredUsername
	if userID == "" {
		userID = c.Sub
	}
	return domainauth.Identity{
		UserID:    userID,
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
		Email:     c.Email,
		Groups:    c.Groups,
	}
}

func (p *Provider) backfillFromUserInfo(ctx context.Context, accessToken string, identity *domainauth.Identity) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return err
	}
	var claims idClaims
	if err := ui.Claims(&claims); err != nil {
		return fmt.Errorf("decode claims: %w", err)
	}
	mergeIdentity(identity, identityFromClaims(claims))
	return nil
}

// mergeIdentity fills empty fields of dst from src without overwriting
// anything the verified ID token already provided.
func mergeIdentity(dst *domainauth.Identity, src domainauth.Identity) {
	if dst.UserID == "" {
		dst.UserID = src.UserID
	}
	if dst.FirstName == "" {
		dst.FirstName = src.FirstName
	}
	if dst.LastName == "" {
		dst.LastName = src.LastName
	}
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if len(dst.Groups) == 0 {
		dst.Groups = src.Groups
	}
}

// randomToken returns a URL-safe random string of exactly n characters.
func randomToken(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, (n*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < n {
		s += "0"
	}
	return s[:n], nil
}
