package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage/memory"
	"github.com/michel-pi/shortly/internal/util"
)

const testPassword = "hunter2hunter2"

func newAuthFixture(t *testing.T) (*AuthService, *models.User) {
	t.Helper()

	store := memory.NewStorage()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user, err := store.CreateUser(context.Background(), models.User{
		Email:        "user@example.com",
		Name:         "Test User",
		PasswordHash: string(passwordHash),
		Roles:        []string{"user"},
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	deriver, err := NewSecretDeriver(testSecretConfig())
	require.NoError(t, err)

	cfg := testTokenConfig()
	jwtService := NewJWTService(cfg, deriver, memory.NewTokenBlacklist())
	refreshTokens := NewRefreshTokenService(cfg, store)

	return NewAuthService(store, jwtService, refreshTokens, zap.NewNop().Sugar()), user
}

func TestAuthService_Login(t *testing.T) {
	svc, user := newAuthFixture(t)
	ctx := context.Background()

	accessToken, refreshToken, expiresAt, err := svc.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
	assert.True(t, expiresAt.After(time.Now()))

	identity, err := svc.jwtService.ValidateAccessToken(ctx, accessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
}

func TestAuthService_LoginRejectsBadCredentials(t *testing.T) {
	svc, user := newAuthFixture(t)
	ctx := context.Background()

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.Login(ctx, user.Email, "wrong password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, _, err := svc.Login(ctx, "nobody@example.com", testPassword)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	svc, user := newAuthFixture(t)
	ctx := context.Background()

	_, refreshToken, _, err := svc.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)

	accessToken, newRefreshToken, _, err := svc.Refresh(ctx, refreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEqual(t, refreshToken, newRefreshToken)

	// The exchanged token no longer refreshes; replaying it kills the
	// successor too.
	_, _, _, err = svc.Refresh(ctx, refreshToken)
	require.ErrorIs(t, err, ErrRefreshTokenReused)
	_, _, _, err = svc.Refresh(ctx, newRefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_RefreshUnknownToken(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, _, _, err := svc.Refresh(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestAuthService_Logout(t *testing.T) {
	svc, user := newAuthFixture(t)
	ctx := context.Background()

	accessToken, refreshToken, _, err := svc.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, accessToken, refreshToken))

	_, err = svc.jwtService.ValidateAccessToken(ctx, accessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, _, _, err = svc.Refresh(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// Logging out twice is fine.
	assert.NoError(t, svc.Logout(ctx, accessToken, refreshToken))
}

func TestAuthService_LogoutAll(t *testing.T) {
	svc, user := newAuthFixture(t)
	ctx := context.Background()

	accessToken, firstRefresh, _, err := svc.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)
	_, secondRefresh, _, err := svc.Login(ctx, user.Email, testPassword)
	require.NoError(t, err)

	require.NoError(t, svc.LogoutAll(ctx, user.ID, accessToken))

	_, _, _, err = svc.Refresh(ctx, firstRefresh)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, _, _, err = svc.Refresh(ctx, secondRefresh)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	_, err = svc.jwtService.ValidateAccessToken(ctx, accessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthService_SeedDefaultAdmin(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	t.Run("unconfigured admin is skipped", func(t *testing.T) {
		assert.NoError(t, svc.SeedDefaultAdmin(ctx, &util.AdminConfig{}))
	})

	t.Run("seeds and logs in", func(t *testing.T) {
		cfg := &util.AdminConfig{Email: "admin@example.com", Password: "admin-password"}
		require.NoError(t, svc.SeedDefaultAdmin(ctx, cfg))

		access, _, _, err := svc.Login(ctx, cfg.Email, cfg.Password)
		require.NoError(t, err)

		identity, err := svc.jwtService.ValidateAccessToken(ctx, access)
		require.NoError(t, err)
		assert.Contains(t, identity.Roles, "admin")
	})

	t.Run("second seed is a no-op", func(t *testing.T) {
		cfg := &util.AdminConfig{Email: "admin@example.com", Password: "changed-password"}
		require.NoError(t, svc.SeedDefaultAdmin(ctx, cfg))

		// The existing account keeps its original password.
		_, _, _, err := svc.Login(ctx, cfg.Email, "admin-password")
		assert.NoError(t, err)
	})
}
