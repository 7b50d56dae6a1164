package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/michel-pi/shortly/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already taken")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenNotActive is returned by RotateRefreshTokenTx when the
	// presented token is revoked or expired.
	ErrRefreshTokenNotActive = errors.New("refresh token not active")
	// ErrRefreshTokenReplaced is returned by RotateRefreshTokenTx when the
	// presented token was already rotated once before (replay).
	ErrRefreshTokenReplaced = errors.New("refresh token already replaced")
	ErrShortLinkNotFound    = errors.New("short link not found")
	ErrShortCodeTaken       = errors.New("short code already taken")
	ErrAccessKeyNotFound    = errors.New("access key not found")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Storage interface {
	UserRepository
	RefreshTokenRepository
	ShortLinkRepository
	AccessKeyRepository
	EngagementRepository
}

type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type RefreshTokenRepository interface {
	CreateRefreshToken(ctx context.Context, token models.RefreshToken) (*models.RefreshToken, error)
	// GetRefreshTokenWithUser looks a token up by hash together with its
	// owning user. It performs no liveness checks.
	GetRefreshTokenWithUser(ctx context.Context, tokenHash string) (*models.RefreshToken, *models.User, error)
	// RotateRefreshTokenTx runs the whole guarded rotation in one
	// transaction: it locks the predecessor row by hash, verifies it is
	// still active, inserts the successor for the same user and marks the
	// predecessor revoked with a forward link to the successor, guarded by
	// revoked_at IS NULL. Outcomes:
	//   - no row for the hash: ErrRefreshTokenNotFound
	//   - row already has a forward link: every active token of the owning
	//     user is revoked (same transaction) and ErrRefreshTokenReplaced
	//     is returned
	//   - row revoked or expired at now: ErrRefreshTokenNotActive
	// On success the stored successor is returned.
	RotateRefreshTokenTx(ctx context.Context, tokenHash string, now time.Time, successor models.RefreshToken) (*models.RefreshToken, error)
	// RevokeRefreshToken is an idempotent no-op when no row matches the hash.
	RevokeRefreshToken(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllUserRefreshTokens(ctx context.Context, userID int64, now time.Time) error
}

type ShortLinkRepository interface {
	// CreateShortLink returns ErrShortCodeTaken when the unique constraint
	// on short_code rejects the insert; the caller owns the retry loop.
	CreateShortLink(ctx context.Context, link models.ShortLink) (*models.ShortLink, error)
	GetShortLink(ctx context.Context, id, userID int64) (*models.ShortLink, error)
	GetShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, error)
	ListShortLinks(ctx context.Context, userID int64, skip, take *int) ([]models.ShortLink, error)
	UpdateShortLink(ctx context.Context, id, userID int64, isActive *bool, expiresAt *time.Time, now time.Time) (*models.ShortLink, error)
	DeleteShortLink(ctx context.Context, id, userID int64) (*models.ShortLink, error)
}

type AccessKeyRepository interface {
	CreateAccessKey(ctx context.Context, key models.AccessKey) (*models.AccessKey, error)
	GetAccessKey(ctx context.Context, id, userID int64) (*models.AccessKey, error)
	GetAccessKeyByHash(ctx context.Context, tokenHash string) (*models.AccessKey, *models.User, error)
	ListAccessKeys(ctx context.Context, userID int64, skip, take *int) ([]models.AccessKey, error)
	UpdateAccessKey(ctx context.Context, id, userID int64, name *string, isActive *bool, expiresAt *time.Time, now time.Time) (*models.AccessKey, error)
	DeleteAccessKey(ctx context.Context, id, userID int64) (bool, error)
}

type EngagementRepository interface {
	CreateEngagement(ctx context.Context, engagement models.ShortLinkEngagement) (*models.ShortLinkEngagement, error)
	ListEngagements(ctx context.Context, userID int64, filter models.EngagementFilter) ([]models.ShortLinkEngagement, error)
	SummarizeEngagements(ctx context.Context, userID int64, filter models.EngagementFilter) (*models.EngagementSummary, error)
}

// TokenBlacklist invalidates access tokens until their natural expiry.
type TokenBlacklist interface {
	InvalidateToken(ctx context.Context, token string, expiration time.Duration) error
	IsTokenInvalidated(ctx context.Context, token string) (bool, error)
}

// LinkCache fronts short-code resolution on the redirect hot path.
type LinkCache interface {
	GetShortLink(ctx context.Context, code string) (*models.ShortLink, error)
	SetShortLink(ctx context.Context, link *models.ShortLink, ttl time.Duration) error
	DeleteShortLink(ctx context.Context, code string) error
}
