package service

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
)

const recordTimeout = 5 * time.Second

// EngagementService records resolved redirects and reports grouped click
// statistics. Client addresses are only ever stored hashed.
type EngagementService struct {
	storage storage.Storage
	geo     CountryResolver
	log     *zap.SugaredLogger
}

func NewEngagementService(s storage.Storage, geo CountryResolver, log *zap.SugaredLogger) *EngagementService {
	return &EngagementService{
		storage: s,
		geo:     geo,
		log:     log,
	}
}

// Record persists one click.
func (s *EngagementService) Record(
	ctx context.Context,
	shortLinkID int64,
	clientIP string,
	userAgent, referer string,
) error {
	_, err := s.storage.CreateEngagement(ctx, models.ShortLinkEngagement{
		ShortLinkID:       shortLinkID,
		ClientAddressHash: HashToken(clientIP),
		UserAgent:         userAgent,
		Referer:           referer,
		Country:           s.geo.LookupCountry(net.ParseIP(clientIP)),
		CreatedAt:         time.Now(),
	})
	if err != nil {
		return fmt.Errorf("record engagement: %w", err)
	}
	return nil
}

// RecordAsync records the click without blocking the redirect. The write
// runs detached from the request context so a client hanging up right
// after the redirect does not lose the click.
func (s *EngagementService) RecordAsync(shortLinkID int64, clientIP, userAgent, referer string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		if err := s.Record(ctx, shortLinkID, clientIP, userAgent, referer); err != nil {
			s.log.Errorw("failed to record engagement", "shortLinkID", shortLinkID, "error", err)
		}
	}()
}

func (s *EngagementService) List(ctx context.Context, userID int64, filter models.EngagementFilter) ([]models.ShortLinkEngagement, error) {
	filter.From, filter.To = normalizeRange(filter.From, filter.To)

	engagements, err := s.storage.ListEngagements(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list engagements: %w", err)
	}
	return engagements, nil
}

func (s *EngagementService) Summary(ctx context.Context, userID int64, filter models.EngagementFilter) (*models.EngagementSummary, error) {
	filter.From, filter.To = normalizeRange(filter.From, filter.To)

	summary, err := s.storage.SummarizeEngagements(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("summarize engagements: %w", err)
	}
	return summary, nil
}

// normalizeRange defaults an open range to [unix epoch, now].
func normalizeRange(from, to time.Time) (time.Time, time.Time) {
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now()
	}
	return from, to
}
