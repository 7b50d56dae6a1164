package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
)

type Storage struct {
	db *sql.DB
	*UserRepository
	*RefreshTokenRepository
	*ShortLinkRepository
	*AccessKeyRepository
	*EngagementRepository
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{
		db:                     db,
		UserRepository:         NewUserRepository(db),
		RefreshTokenRepository: NewRefreshTokenRepository(db),
		ShortLinkRepository:    NewShortLinkRepository(db),
		AccessKeyRepository:    NewAccessKeyRepository(db),
		EngagementRepository:   NewEngagementRepository(db),
	}
}

// RotateRefreshTokenTx performs the guarded rotation in a single
// transaction. The predecessor row is locked with FOR UPDATE so concurrent
// rotations of the same token serialize on the row lock, and the
// revoke-and-link update is additionally guarded by revoked_at IS NULL, so
// a chain can never fork.
func (s *Storage) RotateRefreshTokenTx(
	ctx context.Context,
	tokenHash string,
	now time.Time,
	successor models.RefreshToken,
) (*models.RefreshToken, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	tokenRepoTx := NewRefreshTokenRepository(tx)

	current, err := tokenRepoTx.getRefreshTokenByHashForUpdate(ctx, tokenHash)
	if err != nil {
		return nil, err
	}

	if current.ReplacedByRefreshTokenID != nil {
		// Replay of an already-exchanged token. Kill every live session of
		// the owner before reporting the incident to the caller.
		if err := tokenRepoTx.RevokeAllUserRefreshTokens(ctx, current.UserID, now); err != nil {
			return nil, fmt.Errorf("revoke user tokens on reuse: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit reuse revocation: %w", err)
		}
		return nil, storage.ErrRefreshTokenReplaced
	}

	if current.RevokedAt != nil || !current.ExpiresAt.After(now) {
		return nil, storage.ErrRefreshTokenNotActive
	}

	successor.UserID = current.UserID
	created, err := tokenRepoTx.CreateRefreshToken(ctx, successor)
	if err != nil {
		return nil, fmt.Errorf("create successor token: %w", err)
	}

	if err := tokenRepoTx.markRotated(ctx, current.ID, created.ID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return created, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
