package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
)

const (
	blacklistKeyPrefix = "blacklist:"
	shortLinkKeyPrefix = "shortlink:"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) InvalidateToken(ctx context.Context, token string, expiration time.Duration) error {
	return c.client.Set(ctx, blacklistKeyPrefix+token, "invalidated", expiration).Err()
}

func (c *Cache) IsTokenInvalidated(ctx context.Context, token string) (bool, error) {
	result, err := c.client.Get(ctx, blacklistKeyPrefix+token).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return result == "invalidated", nil
}

func (c *Cache) GetShortLink(ctx context.Context, code string) (*models.ShortLink, error) {
	payload, err := c.client.Get(ctx, shortLinkKeyPrefix+code).Bytes()
	if err == redis.Nil {
		return nil, storage.ErrShortLinkNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get cached short link: %w", err)
	}

	var link models.ShortLink
	if err := json.Unmarshal(payload, &link); err != nil {
		return nil, fmt.Errorf("decode cached short link: %w", err)
	}
	return &link, nil
}

func (c *Cache) SetShortLink(ctx context.Context, link *models.ShortLink, ttl time.Duration) error {
	payload, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encode short link: %w", err)
	}
	return c.client.Set(ctx, shortLinkKeyPrefix+link.ShortCode, payload, ttl).Err()
}

func (c *Cache) DeleteShortLink(ctx context.Context, code string) error {
	return c.client.Del(ctx, shortLinkKeyPrefix+code).Err()
}
