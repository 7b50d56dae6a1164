package postgres

import (
	"context"
	"fmt"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
)

type EngagementRepository struct {
	db storage.DBTX
}

func NewEngagementRepository(db storage.DBTX) *EngagementRepository {
	return &EngagementRepository{db: db}
}

func (r *EngagementRepository) CreateEngagement(ctx context.Context, engagement models.ShortLinkEngagement) (*models.ShortLinkEngagement, error) {
	query := `INSERT INTO short_link_engagements (short_link_id, client_address_hash, user_agent, referer, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, short_link_id, client_address_hash, user_agent, referer, country, created_at`
	var created models.ShortLinkEngagement
	err := r.db.QueryRowContext(
		ctx,
		query,
		engagement.ShortLinkID,
		engagement.ClientAddressHash,
		engagement.UserAgent,
		engagement.Referer,
		engagement.Country,
		engagement.CreatedAt,
	).Scan(
		&created.ID,
		&created.ShortLinkID,
		&created.ClientAddressHash,
		&created.UserAgent,
		&created.Referer,
		&created.Country,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert engagement: %w", err)
	}
	return &created, nil
}

func (r *EngagementRepository) ListEngagements(ctx context.Context, userID int64, filter models.EngagementFilter) ([]models.ShortLinkEngagement, error) {
	query := `SELECT e.id, e.short_link_id, e.client_address_hash, e.user_agent, e.referer, e.country, e.created_at
		FROM short_link_engagements e
		JOIN short_links l ON l.id = e.short_link_id
		WHERE l.user_id = $1
		  AND (l.is_active OR $2)
		  AND e.created_at >= $3 AND e.created_at <= $4
		  AND ($5::bigint IS NULL OR e.short_link_id = $5)
		ORDER BY e.created_at DESC
		OFFSET $6 LIMIT $7`

	rows, err := r.db.QueryContext(
		ctx,
		query,
		userID,
		filter.IncludeInactive,
		filter.From,
		filter.To,
		filter.ShortLinkID,
		offsetArg(filter.Skip),
		limitArg(filter.Take),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list engagements: %w", err)
	}
	defer rows.Close()

	var engagements []models.ShortLinkEngagement
	for rows.Next() {
		var e models.ShortLinkEngagement
		if err := rows.Scan(
			&e.ID,
			&e.ShortLinkID,
			&e.ClientAddressHash,
			&e.UserAgent,
			&e.Referer,
			&e.Country,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan engagement: %w", err)
		}
		engagements = append(engagements, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engagements: %w", err)
	}
	return engagements, nil
}

func (r *EngagementRepository) SummarizeEngagements(ctx context.Context, userID int64, filter models.EngagementFilter) (*models.EngagementSummary, error) {
	summary := &models.EngagementSummary{
		Countries: make(map[string]int64),
		Referers:  make(map[string]int64),
		From:      filter.From,
		To:        filter.To,
	}

	totalsQuery := `SELECT count(*), count(DISTINCT e.client_address_hash)
		FROM short_link_engagements e
		JOIN short_links l ON l.id = e.short_link_id
		WHERE l.user_id = $1 AND (l.is_active OR $2)
		  AND e.created_at >= $3 AND e.created_at <= $4
		  AND ($5::bigint IS NULL OR e.short_link_id = $5)`
	err := r.db.QueryRowContext(ctx, totalsQuery, userID, filter.IncludeInactive, filter.From, filter.To, filter.ShortLinkID).
		Scan(&summary.TotalClicks, &summary.TotalClients)
	if err != nil {
		return nil, fmt.Errorf("failed to count engagements: %w", err)
	}

	if err := r.groupCounts(ctx, "country", userID, filter, summary.Countries); err != nil {
		return nil, err
	}
	if err := r.groupCounts(ctx, "referer", userID, filter, summary.Referers); err != nil {
		return nil, err
	}

	return summary, nil
}

// groupCounts fills dst with per-value click counts for one engagement
// column, bucketing empty values under "?". column is one of the fixed
// names this repository passes in, never user input.
func (r *EngagementRepository) groupCounts(
	ctx context.Context,
	column string,
	userID int64,
	filter models.EngagementFilter,
	dst map[string]int64,
) error {
	query := fmt.Sprintf(`SELECT CASE WHEN e.%s = '' THEN '?' ELSE e.%s END AS bucket, count(*)
		FROM short_link_engagements e
		JOIN short_links l ON l.id = e.short_link_id
		WHERE l.user_id = $1 AND (l.is_active OR $2)
		  AND e.created_at >= $3 AND e.created_at <= $4
		  AND ($5::bigint IS NULL OR e.short_link_id = $5)
		GROUP BY bucket
		ORDER BY count(*) DESC`, column, column)

	rows, err := r.db.QueryContext(ctx, query, userID, filter.IncludeInactive, filter.From, filter.To, filter.ShortLinkID)
	if err != nil {
		return fmt.Errorf("failed to group engagements by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bucket string
			count  int64
		)
		if err := rows.Scan(&bucket, &count); err != nil {
			return fmt.Errorf("failed to scan %s bucket: %w", column, err)
		}
		dst[bucket] = count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s buckets: %w", column, err)
	}
	return nil
}
