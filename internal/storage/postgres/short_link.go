package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
)

const shortLinkColumns = `id, user_id, target_url, short_code, is_active, expires_at, created_at, changed_at`

type ShortLinkRepository struct {
	db storage.DBTX
}

func NewShortLinkRepository(db storage.DBTX) *ShortLinkRepository {
	return &ShortLinkRepository{db: db}
}

func (r *ShortLinkRepository) CreateShortLink(ctx context.Context, link models.ShortLink) (*models.ShortLink, error) {
	query := `INSERT INTO short_links (user_id, target_url, short_code, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + shortLinkColumns
	created, err := scanShortLink(r.db.QueryRowContext(
		ctx,
		query,
		link.UserID,
		link.TargetURL,
		link.ShortCode,
		link.IsActive,
		link.ExpiresAt,
		link.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrShortCodeTaken
		}
		return nil, fmt.Errorf("failed to insert short link: %w", err)
	}
	return created, nil
}

func (r *ShortLinkRepository) GetShortLink(ctx context.Context, id, userID int64) (*models.ShortLink, error) {
	query := `SELECT ` + shortLinkColumns + ` FROM short_links WHERE id = $1 AND user_id = $2`
	link, err := scanShortLink(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrShortLinkNotFound
		}
		return nil, fmt.Errorf("failed to get short link: %w", err)
	}
	return link, nil
}

func (r *ShortLinkRepository) GetShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	query := `SELECT ` + shortLinkColumns + ` FROM short_links WHERE short_code = $1`
	link, err := scanShortLink(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrShortLinkNotFound
		}
		return nil, fmt.Errorf("failed to get short link by code: %w", err)
	}
	return link, nil
}

func (r *ShortLinkRepository) ListShortLinks(ctx context.Context, userID int64, skip, take *int) ([]models.ShortLink, error) {
	query := `SELECT ` + shortLinkColumns + ` FROM short_links
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, userID, offsetArg(skip), limitArg(take))
	if err != nil {
		return nil, fmt.Errorf("failed to list short links: %w", err)
	}
	defer rows.Close()

	var links []models.ShortLink
	for rows.Next() {
		var link models.ShortLink
		if err := rows.Scan(
			&link.ID,
			&link.UserID,
			&link.TargetURL,
			&link.ShortCode,
			&link.IsActive,
			&link.ExpiresAt,
			&link.CreatedAt,
			&link.ChangedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan short link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate short links: %w", err)
	}
	return links, nil
}

func (r *ShortLinkRepository) UpdateShortLink(
	ctx context.Context,
	id, userID int64,
	isActive *bool,
	expiresAt *time.Time,
	now time.Time,
) (*models.ShortLink, error) {
	query := `UPDATE short_links
		SET is_active = COALESCE($3, is_active),
		    expires_at = COALESCE($4, expires_at),
		    changed_at = $5
		WHERE id = $1 AND user_id = $2
		RETURNING ` + shortLinkColumns
	link, err := scanShortLink(r.db.QueryRowContext(ctx, query, id, userID, isActive, expiresAt, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrShortLinkNotFound
		}
		return nil, fmt.Errorf("failed to update short link: %w", err)
	}
	return link, nil
}

func (r *ShortLinkRepository) DeleteShortLink(ctx context.Context, id, userID int64) (*models.ShortLink, error) {
	query := `DELETE FROM short_links WHERE id = $1 AND user_id = $2 RETURNING ` + shortLinkColumns
	link, err := scanShortLink(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrShortLinkNotFound
		}
		return nil, fmt.Errorf("failed to delete short link: %w", err)
	}
	return link, nil
}

func scanShortLink(row *sql.Row) (*models.ShortLink, error) {
	var link models.ShortLink
	err := row.Scan(
		&link.ID,
		&link.UserID,
		&link.TargetURL,
		&link.ShortCode,
		&link.IsActive,
		&link.ExpiresAt,
		&link.CreatedAt,
		&link.ChangedAt,
	)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func offsetArg(skip *int) int {
	if skip == nil || *skip < 0 {
		return 0
	}
	return *skip
}

// limitArg maps "no limit" to sql NULL via a nil pointer.
func limitArg(take *int) any {
	if take == nil || *take < 0 {
		return nil
	}
	return *take
}
