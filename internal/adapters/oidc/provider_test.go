package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/sportwire/ingest-admin/internal/domain/auth"
)

func TestNewProvider_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProviderConfig
		want string
	}{
		{"missing client id", ProviderConfig{ClientSecret: "s", RedirectURL: "r", DiscoveryURL: "d"}, "client ID"},
		{"missing client secret", ProviderConfig{ClientID: "c", RedirectURL: "r", DiscoveryURL: "d"}, "client secret"},
		{"missing redirect", ProviderConfig{ClientID: "c", ClientSecret: "s", DiscoveryURL: "d"}, "redirect URL"},
		{"missing discovery", ProviderConfig{ClientID: "c", ClientSecret: "s", RedirectURL: "r"}, "discovery URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestIssuerFromDiscoveryURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://idp.example.com", "https://idp.example.com"},
		{"https://idp.example.com/", "https://idp.example.com"},
		{"https://idp.example.com/.well-known/openid-configuration", "https://idp.example.com"},
		{"https://idp.example.com/realms/prod/.well-known/openid-configuration", "https://idp.example.com/realms/prod"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, issuerFromDiscoveryURL(tt.in), tt.in)
	}
}

func TestIdentityFromClaims_PrefersPreferredUsername(t *testing.T) {
	identity := identityFromClaims(idClaims{
		Sub:               "sub-123",
		PreferredUsername: "ops.user",
		GivenName:         "Ops",
		FamilyName:        "User",
		Email:             "ops.user@example.com",
		Groups:            []string{"ingest-operators"},
	})

	assert.Equal(t, "ops.user", identity.UserID)
	assert.Equal(t, "Ops", identity.FirstName)
	assert.Equal(t, "User", identity.LastName)
	assert.Equal(t, "ops.user@example.com", identity.Email)
	assert.Equal(t, []string{"ingest-operators"}, identity.Groups)
}

func TestIdentityFromClaims_FallsBackToSub(t *testing.T) {
	identity := identityFromClaims(idClaims{Sub: "sub-123"})
	assert.Equal(t, "sub-123", identity.UserID)
}

func TestMergeIdentity_DoesNotOverwrite(t *testing.T) {
	dst := domainauth.Identity{
		UserID: "from-token",
		Email:  "token@example.com",
	}

	mergeIdentity(&dst, domainauth.Identity{
		UserID:    "from-userinfo",
		FirstName: "First",
		LastName:  "Last",
		Email:     "userinfo@example.com",
		Groups:    []string{"ingest-admins"},
	})

	assert.Equal(t, "from-token", dst.UserID)
	assert.Equal(t, "token@example.com", dst.Email)
	assert.Equal(t, "First", dst.FirstName)
	assert.Equal(t, "Last", dst.LastName)
	assert.Equal(t, []string{"ingest-admins"}, dst.Groups)
}

func TestRandomToken(t *testing.T) {
	a, err := randomToken(32)
	require.NoError(t, err)
	b, err := randomToken(32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Len(t, b, 32)
	assert.NotEqual(t, a, b)

	empty, err := randomToken(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
