package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
	"github.com/michel-pi/shortly/internal/util"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const adminRole = "admin"

// AuthService is the authentication boundary: password login, token pair
// handling and logout. The refresh-token protocol itself lives in
// RefreshTokenService.
type AuthService struct {
	storage       storage.Storage
	jwtService    *JWTService
	refreshTokens *RefreshTokenService
	log           *zap.SugaredLogger
}

func NewAuthService(
	s storage.Storage,
	jwtService *JWTService,
	refreshTokens *RefreshTokenService,
	log *zap.SugaredLogger,
) *AuthService {
	return &AuthService{
		storage:       s,
		jwtService:    jwtService,
		refreshTokens: refreshTokens,
		log:           log,
	}
}

// Login verifies the password and returns an access token plus a fresh
// refresh token with its expiry.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, string, time.Time, error) {
	user, err := s.storage.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", "", time.Time{}, ErrInvalidCredentials
		}
		return "", "", time.Time{}, fmt.Errorf("get user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", "", time.Time{}, ErrInvalidCredentials
	}

	accessToken, err := s.jwtService.CreateAccessToken(user, time.Now())
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("create access token: %w", err)
	}

	refreshToken, refreshExpiry, err := s.refreshTokens.Issue(ctx, user.ID)
	if err != nil {
		return "", "", time.Time{}, err
	}

	return accessToken, refreshToken, refreshExpiry, nil
}

// Refresh exchanges a refresh token for a new token pair. The user is
// loaded through GetByToken before rotation; rotation itself enforces
// liveness and replay detection.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
	_, user, err := s.refreshTokens.GetByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) {
			return "", "", time.Time{}, ErrInvalidRefreshToken
		}
		return "", "", time.Time{}, err
	}

	newRefreshToken, newExpiry, err := s.refreshTokens.Rotate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenReused) {
			s.log.Warnw("refresh token replay detected, user sessions revoked", "userID", user.ID)
		}
		return "", "", time.Time{}, err
	}

	accessToken, err := s.jwtService.CreateAccessToken(user, time.Now())
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("create access token: %w", err)
	}

	return accessToken, newRefreshToken, newExpiry, nil
}

// Logout revokes the presented refresh token and blacklists the access
// token. Both steps are idempotent.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if refreshToken != "" {
		if err := s.refreshTokens.Revoke(ctx, refreshToken); err != nil {
			return err
		}
	}
	if accessToken != "" {
		if err := s.jwtService.InvalidateAccessToken(ctx, accessToken); err != nil {
			return err
		}
	}
	return nil
}

// LogoutAll revokes every refresh token of the user and blacklists the
// current access token.
func (s *AuthService) LogoutAll(ctx context.Context, userID int64, accessToken string) error {
	if err := s.refreshTokens.RevokeAll(ctx, userID); err != nil {
		return err
	}
	if accessToken != "" {
		if err := s.jwtService.InvalidateAccessToken(ctx, accessToken); err != nil {
			return err
		}
	}
	return nil
}

func (s *AuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// SeedDefaultAdmin creates the configured admin account when it does not
// exist yet. A partially configured admin is skipped with a warning.
func (s *AuthService) SeedDefaultAdmin(ctx context.Context, cfg *util.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		s.log.Warn("default admin not configured, skipping seed")
		return nil
	}

	if _, err := s.storage.GetUserByEmail(ctx, cfg.Email); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return fmt.Errorf("check admin user: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = s.storage.CreateUser(ctx, models.User{
		Email:        cfg.Email,
		Name:         cfg.Email,
		PasswordHash: string(passwordHash),
		Roles:        []string{adminRole},
	})
	if err != nil {
		// A parallel instance may have seeded it first.
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil
		}
		return fmt.Errorf("create admin user: %w", err)
	}

	s.log.Infow("default admin created", "email", cfg.Email)
	return nil
}
