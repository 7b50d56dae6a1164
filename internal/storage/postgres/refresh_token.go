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

const refreshTokenColumns = `id, user_id, token_hash, expires_at, revoked_at, replaced_by_refresh_token_id, created_at`

type RefreshTokenRepository struct {
	db storage.DBTX
}

func NewRefreshTokenRepository(db storage.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) CreateRefreshToken(ctx context.Context, token models.RefreshToken) (*models.RefreshToken, error) {
	query := `INSERT INTO refresh_tokens (user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + refreshTokenColumns
	created, err := scanRefreshToken(r.db.QueryRowContext(ctx, query, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return created, nil
}

func (r *RefreshTokenRepository) GetRefreshTokenWithUser(ctx context.Context, tokenHash string) (*models.RefreshToken, *models.User, error) {
	query := `SELECT rt.id, rt.user_id, rt.token_hash, rt.expires_at, rt.revoked_at, rt.replaced_by_refresh_token_id, rt.created_at,
		u.id, u.email, u.name, u.password_hash, u.roles, u.created_at
		FROM refresh_tokens rt
		JOIN users u ON u.id = rt.user_id
		WHERE rt.token_hash = $1`

	var (
		token models.RefreshToken
		user  models.User
	)
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.ReplacedByRefreshTokenID,
		&token.CreatedAt,
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		pq.Array(&user.Roles),
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, storage.ErrRefreshTokenNotFound
		}
		return nil, nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return &token, &user, nil
}

func (r *RefreshTokenRepository) RevokeRefreshToken(ctx context.Context, tokenHash string, now time.Time) error {
	query := `UPDATE refresh_tokens SET revoked_at = $2 WHERE token_hash = $1 AND revoked_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, tokenHash, now); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllUserRefreshTokens(ctx context.Context, userID int64, now time.Time) error {
	query := `UPDATE refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, userID, now); err != nil {
		return fmt.Errorf("failed to revoke user refresh tokens: %w", err)
	}
	return nil
}

// getRefreshTokenByHashForUpdate locks the row for the duration of the
// surrounding transaction. Only meaningful when the repository runs on a tx.
func (r *RefreshTokenRepository) getRefreshTokenByHashForUpdate(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`
	token, err := scanRefreshToken(r.db.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("failed to lock refresh token: %w", err)
	}
	return token, nil
}

// markRotated revokes the predecessor and sets its forward link. The
// revoked_at IS NULL guard is the compare-and-swap that keeps chains from
// forking; zero rows affected means another writer got there first.
func (r *RefreshTokenRepository) markRotated(ctx context.Context, id, successorID int64, now time.Time) error {
	query := `UPDATE refresh_tokens
		SET revoked_at = $2, replaced_by_refresh_token_id = $3
		WHERE id = $1 AND revoked_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, now, successorID)
	if err != nil {
		return fmt.Errorf("failed to mark refresh token rotated: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected != 1 {
		return storage.ErrRefreshTokenNotActive
	}
	return nil
}

func scanRefreshToken(row *sql.Row) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.ReplacedByRefreshTokenID,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}
