package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_LoginLogout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()
	s := NewSession(WithTokenStore(store))

	assert.False(t, s.IsLoggedIn())
	h, err := s.Headers(ctx)
	require.NoError(t, err)
	assert.Empty(t, h, "logged out session sends no Authorization")

	token := mintToken(t, testKey, claimsFor("2", RoleTechnical, time.Now().Add(time.Hour)))
	require.NoError(t, s.Login(ctx, token))

	assert.True(t, s.IsLoggedIn())
	assert.Equal(t, "2", s.Identity().UserID)
	assert.True(t, s.HasPermission(RoleUser))
	assert.False(t, s.HasPermission(RoleAdmin))

	h, err = s.Headers(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+token, h["Authorization"])

	stored, _ := store.Load(ctx)
	assert.Equal(t, token, stored)

	require.NoError(t, s.Logout(ctx))
	assert.False(t, s.IsLoggedIn())
	assert.Empty(t, s.Token())
	stored, _ = store.Load(ctx)
	assert.Empty(t, stored)
}

func TestSession_LoginRejectsBadToken(t *testing.T) {
	s := NewSession(WithKeyProvider(NewStaticKeyProvider(testKey)))
	forged := mintToken(t, []byte("other"), claimsFor("1", RoleAdmin, time.Now().Add(time.Hour)))

	err := s.Login(context.Background(), forged)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, s.IsLoggedIn())
}

func TestSession_ExpiryDuringSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := NewSession(WithClock(clock))

	require.NoError(t, s.Login(ctx, mintToken(t, testKey, claimsFor("3", RoleUser, now.Add(time.Hour)))))
	assert.True(t, s.IsLoggedIn())

	now = now.Add(2 * time.Hour)
	assert.False(t, s.IsLoggedIn())
	assert.Nil(t, s.Identity())
	_, err := s.Headers(ctx)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSession_IdentityIsACopy(t *testing.T) {
	s := NewSession()
	require.NoError(t, s.Login(context.Background(), mintToken(t, testKey, claimsFor("4", RoleUser, time.Time{}))))

	id := s.Identity()
	id.Role = RoleAdmin
	assert.Equal(t, RoleUser, s.Identity().Role)
}

func TestSession_Restore(t *testing.T) {
	ctx := context.Background()
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "nested", "token"))

	first := NewSession(WithTokenStore(store))
	require.NoError(t, first.Restore(ctx), "empty store is not an error")
	assert.False(t, first.IsLoggedIn())

	token := mintToken(t, testKey, claimsFor("5", RoleAdmin, time.Now().Add(time.Hour)))
	require.NoError(t, first.Login(ctx, token))

	second := NewSession(WithTokenStore(store))
	require.NoError(t, second.Restore(ctx))
	assert.True(t, second.IsLoggedIn())
	assert.Equal(t, "5", second.Identity().UserID)
}

func TestSession_RestoreExpiredClearsStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryTokenStore()
	require.NoError(t, store.Save(ctx, mintToken(t, testKey, claimsFor("6", RoleUser, time.Now().Add(-time.Hour)))))

	s := NewSession(WithTokenStore(store))
	assert.ErrorIs(t, s.Restore(ctx), ErrTokenExpired)
	assert.False(t, s.IsLoggedIn())

	stored, _ := store.Load(ctx)
	assert.Empty(t, stored)
}

func TestSession_Authorize(t *testing.T) {
	ctx := context.Background()
	authz := newTestAuthorizer()
	s := NewSession()

	assert.NoError(t, s.Authorize(ctx, authz, "blogs", ActionRead))
	assert.ErrorIs(t, s.Authorize(ctx, authz, "blogs", ActionDelete), ErrNotLoggedIn)

	require.NoError(t, s.Login(ctx, mintToken(t, testKey, claimsFor("2", RoleTechnical, time.Time{}))))
	assert.NoError(t, s.Authorize(ctx, authz, "blogs", ActionDelete))
	assert.ErrorIs(t, s.Authorize(ctx, authz, "users", ActionRead), ErrForbidden)
	assert.NoError(t, s.Authorize(ctx, nil, "users", ActionDelete), "nil authorizer allows")
}
