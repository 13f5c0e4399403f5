package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/sportwire/ingest-admin/internal/domain/auth"
	"github.com/sportwire/ingest-admin/internal/ports"
)

func TestMockAuthProvider_DeterministicStateAndNonce(t *testing.T) {
	p := NewMockAuthProvider()
	ctx := context.Background()

	authURL, state1, nonce1, err := p.Begin(ctx, ports.BeginInput{RedirectURL: "http://localhost/cb"})
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", authURL)
	assert.Equal(t, "state-1", state1)
	assert.Equal(t, "nonce-1", nonce1)

	_, state2, nonce2, err := p.Begin(ctx, ports.BeginInput{RedirectURL: "http://localhost/cb"})
	require.NoError(t, err)
	assert.Equal(t, "state-2", state2)
	assert.Equal(t, "nonce-2", nonce2)
}

func TestMockAuthProvider_ExchangeReturnsDefaultUser(t *testing.T) {
	p := NewMockAuthProvider()

	identity, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "c", State: "s", Nonce: "n"})
	require.NoError(t, err)
	assert.Equal(t, "mock-user-1", identity.UserID)
	assert.Equal(t, []string{"ingest-operators"}, identity.Groups)
	assert.True(t, identity.ExpiresAt.After(time.Now()))
}

func TestMockAuthProvider_CustomFuncs(t *testing.T) {
	wantErr := errors.New("idp down")
	p := &MockAuthProvider{
		ExchangeFunc: func(context.Context, ports.ExchangeInput) (domainauth.Identity, error) {
			return domainauth.Identity{}, wantErr
		},
	}

	_, err := p.Exchange(context.Background(), ports.ExchangeInput{})
	assert.ErrorIs(t, err, wantErr)
}

func TestMemorySessionStore_RoundTrip(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	sess := domainauth.Session{ID: "s-1", UserID: "u-1", Role: domainauth.RoleViewer}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	require.NoError(t, store.Delete(ctx, "s-1"))
	_, err = store.Get(ctx, "s-1")
	assert.Equal(t, ErrNotFound, err)
}

func TestMemorySessionStore_EmptyID(t *testing.T) {
	store := NewMemorySessionStore()

	err := store.Save(context.Background(), domainauth.Session{})
	require.Error(t, err)

	_, err = store.Get(context.Background(), "")
	assert.Equal(t, ErrNotFound, err)

	assert.NoError(t, store.Delete(context.Background(), ""))
}

func TestStaticRoleMapper(t *testing.T) {
	m := StaticRoleMapper{
		AdminGroup:    "ingest-admins",
		OperatorGroup: "ingest-operators",
	}

	tests := []struct {
		name   string
		groups []string
		want   domainauth.Role
	}{
		{"admin group", []string{"ingest-admins"}, domainauth.RoleAdmin},
		{"operator group", []string{"ingest-operators"}, domainauth.RoleOperator},
		{"admin wins over operator", []string{"ingest-operators", "ingest-admins"}, domainauth.RoleAdmin},
		{"unknown groups get viewer", []string{"something-else"}, domainauth.RoleViewer},
		{"no groups get viewer", nil, domainauth.RoleViewer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Map(tt.groups))
		})
	}
}
