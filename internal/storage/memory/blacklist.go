package memory

import (
	"context"
	"sync"
	"time"
)

// TokenBlacklist is an in-process storage.TokenBlacklist. Entries expire
// lazily on lookup.
type TokenBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{entries: make(map[string]time.Time)}
}

func (b *TokenBlacklist) InvalidateToken(_ context.Context, token string, expiration time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[token] = time.Now().Add(expiration)
	return nil
}

func (b *TokenBlacklist) IsTokenInvalidated(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	deadline, ok := b.entries[token]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(b.entries, token)
		return false, nil
	}
	return true, nil
}
