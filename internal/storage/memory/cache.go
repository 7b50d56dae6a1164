package memory

import (
	"context"
	"sync"
	"time"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
)

// LinkCache is the in-memory stand-in for the redis short-link cache.
type LinkCache struct {
	mu      sync.RWMutex
	entries map[string]linkCacheEntry
}

type linkCacheEntry struct {
	link      models.ShortLink
	expiresAt time.Time
}

func NewLinkCache() *LinkCache {
	return &LinkCache{entries: make(map[string]linkCacheEntry)}
}

func (c *LinkCache) GetShortLink(_ context.Context, code string) (*models.ShortLink, error) {
	c.mu.RLock()
	entry, ok := c.entries[code]
	c.mu.RUnlock()

	if !ok || !entry.expiresAt.After(time.Now()) {
		return nil, storage.ErrShortLinkNotFound
	}
	link := entry.link
	return &link, nil
}

func (c *LinkCache) SetShortLink(_ context.Context, link *models.ShortLink, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[link.ShortCode] = linkCacheEntry{link: *link, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *LinkCache) DeleteShortLink(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, code)
	return nil
}
