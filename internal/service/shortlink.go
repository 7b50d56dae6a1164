package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
	"github.com/michel-pi/shortly/internal/util"
)

var ErrShortLinkNotFound = errors.New("short link not found")

// collisionLogInterval is how many consecutive short-code collisions pass
// between warning logs during one create call.
const collisionLogInterval = 5

type ShortLinkService struct {
	storage  storage.Storage
	codes    *ShortCodeGenerator
	cache    storage.LinkCache
	cacheTTL time.Duration
	log      *zap.SugaredLogger
}

func NewShortLinkService(
	s storage.Storage,
	codes *ShortCodeGenerator,
	cache storage.LinkCache,
	cacheCfg *util.LinkCacheConfig,
	log *zap.SugaredLogger,
) *ShortLinkService {
	return &ShortLinkService{
		storage:  s,
		codes:    codes,
		cache:    cache,
		cacheTTL: cacheCfg.TTL,
		log:      log,
	}
}

// Create persists a new link under a freshly generated short code. On a
// unique-constraint collision the code is regenerated and the insert
// retried until it lands; the loop is deliberately unbounded because a
// collision only shrinks the remaining probability of the next one. With
// a sane alphabet/length configuration collisions are rare, so the
// running count is logged to make a pathological configuration visible.
func (s *ShortLinkService) Create(
	ctx context.Context,
	userID int64,
	targetURL string,
	isActive bool,
	expiresAt *time.Time,
) (*models.ShortLink, error) {
	if !strings.Contains(targetURL, "://") {
		targetURL = "https://" + targetURL
	}

	link := models.ShortLink{
		UserID:    userID,
		TargetURL: targetURL,
		IsActive:  isActive,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	collisions := 0
	for {
		link.ShortCode = s.codes.Generate()

		created, err := s.storage.CreateShortLink(ctx, link)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, storage.ErrShortCodeTaken) {
			return nil, fmt.Errorf("create short link: %w", err)
		}

		collisions++
		if collisions%collisionLogInterval == 0 {
			s.log.Warnw("short code collisions piling up, check alphabet/length configuration",
				"collisions", collisions)
		}
	}
}

func (s *ShortLinkService) Get(ctx context.Context, id, userID int64) (*models.ShortLink, error) {
	link, err := s.storage.GetShortLink(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrShortLinkNotFound) {
			return nil, ErrShortLinkNotFound
		}
		return nil, fmt.Errorf("get short link: %w", err)
	}
	return link, nil
}

// Resolve looks a short code up for redirecting, serving from the cache
// when possible. Liveness (is_active, expiry) is the caller's decision;
// the full record is returned.
func (s *ShortLinkService) Resolve(ctx context.Context, code string) (*models.ShortLink, error) {
	if cached, err := s.cache.GetShortLink(ctx, code); err == nil {
		return cached, nil
	} else if !errors.Is(err, storage.ErrShortLinkNotFound) {
		// A broken cache should not take redirects down.
		s.log.Warnw("short link cache read failed", "code", code, "error", err)
	}

	link, err := s.storage.GetShortLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrShortLinkNotFound) {
			return nil, ErrShortLinkNotFound
		}
		return nil, fmt.Errorf("resolve short link: %w", err)
	}

	if err := s.cache.SetShortLink(ctx, link, s.cacheTTL); err != nil {
		s.log.Warnw("short link cache write failed", "code", code, "error", err)
	}

	return link, nil
}

func (s *ShortLinkService) List(ctx context.Context, userID int64, skip, take *int) ([]models.ShortLink, error) {
	links, err := s.storage.ListShortLinks(ctx, userID, skip, take)
	if err != nil {
		return nil, fmt.Errorf("list short links: %w", err)
	}
	return links, nil
}

func (s *ShortLinkService) Update(
	ctx context.Context,
	id, userID int64,
	isActive *bool,
	expiresAt *time.Time,
) (*models.ShortLink, error) {
	link, err := s.storage.UpdateShortLink(ctx, id, userID, isActive, expiresAt, time.Now())
	if err != nil {
		if errors.Is(err, storage.ErrShortLinkNotFound) {
			return nil, ErrShortLinkNotFound
		}
		return nil, fmt.Errorf("update short link: %w", err)
	}

	s.dropFromCache(ctx, link.ShortCode)
	return link, nil
}

func (s *ShortLinkService) Delete(ctx context.Context, id, userID int64) error {
	link, err := s.storage.DeleteShortLink(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrShortLinkNotFound) {
			return ErrShortLinkNotFound
		}
		return fmt.Errorf("delete short link: %w", err)
	}

	s.dropFromCache(ctx, link.ShortCode)
	return nil
}

func (s *ShortLinkService) dropFromCache(ctx context.Context, code string) {
	if err := s.cache.DeleteShortLink(ctx, code); err != nil {
		s.log.Warnw("short link cache invalidation failed", "code", code, "error", err)
	}
}
