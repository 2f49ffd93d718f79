package services

import (
	"context"
	"testing"
	"time"

	"authhub/internal/models"
	apperrors "authhub/pkg/errors"
	"authhub/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	return NewAuthenticator(newTestTokenManager(t), setupTestStore(t))
}

func TestAuthenticate_Anonymous(t *testing.T) {
	a := newTestAuthenticator(t)

	// 空令牌不是错误，产出匿名主体
	principal, err := a.Authenticate(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, principal)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.TokenManager().GenerateAccessToken(42, 7, "alice", []string{"ROLE_ADMIN"}, []string{"user:read"})
	require.NoError(t, err)

	principal, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, principal)

	assert.Equal(t, uint(42), principal.UserID)
	assert.Equal(t, uint(7), principal.TenantID)
	assert.Equal(t, "alice", principal.Username)
	assert.True(t, principal.HasRole("ROLE_ADMIN"))
	assert.True(t, principal.HasPermission("user:read"))
	assert.True(t, principal.HasAuthority("ROLE_ADMIN"))
	assert.True(t, principal.HasAuthority("user:read"))
	assert.False(t, principal.HasAuthority("user:delete"))
}

func TestAuthenticate_RejectsRefreshToken(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.TokenManager().GenerateRefreshToken(42, 7, "alice")
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), token)
	assert.Equal(t, apperrors.CodeWrongTokenType, apperrors.CodeOf(err))
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	store := setupTestStore(t)
	m, err := jwt.NewTokenManager(testSecret, time.Millisecond, time.Hour, "authhub")
	require.NoError(t, err)
	a := NewAuthenticator(m, store)

	token, err := m.GenerateAccessToken(42, 7, "alice", nil, nil)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = a.Authenticate(context.Background(), token)
	assert.Equal(t, apperrors.CodeTokenExpired, apperrors.CodeOf(err))
}

func TestAuthenticate_BadSignature(t *testing.T) {
	a := newTestAuthenticator(t)

	other, err := jwt.NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour, time.Hour, "authhub")
	require.NoError(t, err)
	token, err := other.GenerateAccessToken(42, 7, "alice", nil, nil)
	require.NoError(t, err)

	_, err = a.Authenticate(context.Background(), token)
	assert.Equal(t, apperrors.CodeTokenBadSignature, apperrors.CodeOf(err))
}

func TestAuthenticate_Malformed(t *testing.T) {
	a := newTestAuthenticator(t)

	_, err := a.Authenticate(context.Background(), "not-a-jwt")
	assert.Equal(t, apperrors.CodeTokenMalformed, apperrors.CodeOf(err))
}

func TestAuthenticate_BlacklistedToken(t *testing.T) {
	store := setupTestStore(t)
	m := newTestTokenManager(t)
	a := NewAuthenticator(m, store)
	ctx := context.Background()

	token, err := m.GenerateAccessToken(42, 7, "alice", nil, nil)
	require.NoError(t, err)

	// 入黑名单前通过
	_, err = a.Authenticate(ctx, token)
	require.NoError(t, err)

	require.NoError(t, store.AddToBlacklist(ctx, 7, token, time.Hour))

	_, err = a.Authenticate(ctx, token)
	assert.Equal(t, apperrors.CodeTokenBlacklisted, apperrors.CodeOf(err))
}

func TestPrincipal_IsPlatformAdmin(t *testing.T) {
	admin := NewPrincipal(&jwt.Claims{Roles: []string{models.RolePlatformAdmin}})
	assert.True(t, admin.IsPlatformAdmin())

	regular := NewPrincipal(&jwt.Claims{Roles: []string{models.RoleAdmin}})
	assert.False(t, regular.IsPlatformAdmin())
}
