package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
	"github.com/michel-pi/shortly/internal/util"
)

var (
	// ErrInvalidRefreshToken covers unknown, revoked and expired tokens
	// presented to Rotate; the client should log in again.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrRefreshTokenReused marks a replay of an already-exchanged token.
	// By the time the caller sees it, every live session of the owner has
	// been revoked.
	ErrRefreshTokenReused = errors.New("refresh token reused")
	// ErrRefreshTokenNotFound is the GetByToken miss.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
)

// RefreshTokenService implements opaque refresh-token issuance, rotation
// with replay detection, and revocation. Tokens are random uuids; only
// their sha256 hex hash reaches the store.
type RefreshTokenService struct {
	storage    storage.Storage
	refreshTTL time.Duration
	now        func() time.Time
}

func NewRefreshTokenService(cfg *util.TokenConfig, s storage.Storage) *RefreshTokenService {
	return &RefreshTokenService{
		storage:    s,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
}

// Issue creates a fresh active token for the user and returns the
// plaintext value together with its expiry. The plaintext is never stored.
func (s *RefreshTokenService) Issue(ctx context.Context, userID int64) (string, time.Time, error) {
	now := s.now()
	token := uuid.NewString()
	expiresAt := now.Add(s.refreshTTL)

	_, err := s.storage.CreateRefreshToken(ctx, models.RefreshToken{
		UserID:    userID,
		TokenHash: HashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue refresh token: %w", err)
	}

	return token, expiresAt, nil
}

// Rotate exchanges an active token for a successor. The predecessor is
// revoked and forward-linked to the successor in the same store
// transaction, so concurrent rotations of one token cannot fork the chain.
// Presenting a token that was already exchanged revokes every live token
// of its owner and fails with ErrRefreshTokenReused.
func (s *RefreshTokenService) Rotate(ctx context.Context, token string) (string, time.Time, error) {
	now := s.now()
	nextToken := uuid.NewString()

	successor := models.RefreshToken{
		TokenHash: HashToken(nextToken),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}

	created, err := s.storage.RotateRefreshTokenTx(ctx, HashToken(token), now, successor)
	switch {
	case err == nil:
		return nextToken, created.ExpiresAt, nil
	case errors.Is(err, storage.ErrRefreshTokenReplaced):
		return "", time.Time{}, ErrRefreshTokenReused
	case errors.Is(err, storage.ErrRefreshTokenNotFound), errors.Is(err, storage.ErrRefreshTokenNotActive):
		return "", time.Time{}, ErrInvalidRefreshToken
	default:
		return "", time.Time{}, fmt.Errorf("rotate refresh token: %w", err)
	}
}

// Revoke marks the token revoked. Unknown or already-revoked tokens are a
// silent no-op.
func (s *RefreshTokenService) Revoke(ctx context.Context, token string) error {
	if err := s.storage.RevokeRefreshToken(ctx, HashToken(token), s.now()); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAll revokes every live token of the user. Idempotent; used for
// "log out everywhere" and as the replay incident response.
func (s *RefreshTokenService) RevokeAll(ctx context.Context, userID int64) error {
	if err := s.storage.RevokeAllUserRefreshTokens(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return nil
}

// GetByToken returns the stored record and its owning user. It performs no
// liveness checks; only Rotate enforces expiry and revocation, callers
// that need an authorization decision must inspect the record themselves.
func (s *RefreshTokenService) GetByToken(ctx context.Context, token string) (*models.RefreshToken, *models.User, error) {
	record, user, err := s.storage.GetRefreshTokenWithUser(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			return nil, nil, ErrRefreshTokenNotFound
		}
		return nil, nil, fmt.Errorf("get refresh token: %w", err)
	}
	return record, user, nil
}

// HashToken is the one-way index for opaque secrets: sha256, hex encoded.
// A fast digest is fine here, the input is a random 128-bit-class value,
// not a user-chosen password.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
