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

const accessKeyColumns = `id, user_id, name, token_hash, is_active, expires_at, created_at, changed_at`

type AccessKeyRepository struct {
	db storage.DBTX
}

func NewAccessKeyRepository(db storage.DBTX) *AccessKeyRepository {
	return &AccessKeyRepository{db: db}
}

func (r *AccessKeyRepository) CreateAccessKey(ctx context.Context, key models.AccessKey) (*models.AccessKey, error) {
	query := `INSERT INTO access_keys (user_id, name, token_hash, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + accessKeyColumns
	created, err := scanAccessKey(r.db.QueryRowContext(
		ctx,
		query,
		key.UserID,
		key.Name,
		key.TokenHash,
		key.IsActive,
		key.ExpiresAt,
		key.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert access key: %w", err)
	}
	return created, nil
}

func (r *AccessKeyRepository) GetAccessKey(ctx context.Context, id, userID int64) (*models.AccessKey, error) {
	query := `SELECT ` + accessKeyColumns + ` FROM access_keys WHERE id = $1 AND user_id = $2`
	key, err := scanAccessKey(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAccessKeyNotFound
		}
		return nil, fmt.Errorf("failed to get access key: %w", err)
	}
	return key, nil
}

func (r *AccessKeyRepository) GetAccessKeyByHash(ctx context.Context, tokenHash string) (*models.AccessKey, *models.User, error) {
	query := `SELECT k.id, k.user_id, k.name, k.token_hash, k.is_active, k.expires_at, k.created_at, k.changed_at,
		u.id, u.email, u.name, u.password_hash, u.roles, u.created_at
		FROM access_keys k
		JOIN users u ON u.id = k.user_id
		WHERE k.token_hash = $1`

	var (
		key  models.AccessKey
		user models.User
	)
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&key.ID,
		&key.UserID,
		&key.Name,
		&key.TokenHash,
		&key.IsActive,
		&key.ExpiresAt,
		&key.CreatedAt,
		&key.ChangedAt,
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		pq.Array(&user.Roles),
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, storage.ErrAccessKeyNotFound
		}
		return nil, nil, fmt.Errorf("failed to get access key by hash: %w", err)
	}
	return &key, &user, nil
}

func (r *AccessKeyRepository) ListAccessKeys(ctx context.Context, userID int64, skip, take *int) ([]models.AccessKey, error) {
	query := `SELECT ` + accessKeyColumns + ` FROM access_keys
		WHERE user_id = $1
		ORDER BY name DESC
		OFFSET $2 LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, userID, offsetArg(skip), limitArg(take))
	if err != nil {
		return nil, fmt.Errorf("failed to list access keys: %w", err)
	}
	defer rows.Close()

	var keys []models.AccessKey
	for rows.Next() {
		var key models.AccessKey
		if err := rows.Scan(
			&key.ID,
			&key.UserID,
			&key.Name,
			&key.TokenHash,
			&key.IsActive,
			&key.ExpiresAt,
			&key.CreatedAt,
			&key.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan access key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access keys: %w", err)
	}
	return keys, nil
}

func (r *AccessKeyRepository) UpdateAccessKey(
	ctx context.Context,
	id, userID int64,
	name *string,
	isActive *bool,
	expiresAt *time.Time,
	now time.Time,
) (*models.AccessKey, error) {
	query := `UPDATE access_keys
		SET name = COALESCE($3, name),
		    is_active = COALESCE($4, is_active),
		    expires_at = COALESCE($5, expires_at),
		    changed_at = $6
		WHERE id = $1 AND user_id = $2
		RETURNING ` + accessKeyColumns
	key, err := scanAccessKey(r.db.QueryRowContext(ctx, query, id, userID, name, isActive, expiresAt, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAccessKeyNotFound
		}
		return nil, fmt.Errorf("failed to update access key: %w", err)
	}
	return key, nil
}

func (r *AccessKeyRepository) DeleteAccessKey(ctx context.Context, id, userID int64) (bool, error) {
	query := `DELETE FROM access_keys WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete access key: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanAccessKey(row *sql.Row) (*models.AccessKey, error) {
	var key models.AccessKey
	err := row.Scan(
		&key.ID,
		&key.UserID,
		&key.Name,
		&key.TokenHash,
		&key.IsActive,
		&key.ExpiresAt,
		&key.CreatedAt,
		&key.ChangedAt,
	)
	if err != nil {
		return nil, err
	}
	return &key, nil
}
