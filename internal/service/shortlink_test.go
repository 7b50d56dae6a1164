package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
	"github.com/michel-pi/shortly/internal/storage/memory"
	"github.com/michel-pi/shortly/internal/util"
)

func newShortLinkFixture(t *testing.T, store storage.Storage) *ShortLinkService {
	t.Helper()

	codes, err := NewShortCodeGenerator(&util.ShortCodeConfig{
		Alphabet: "0123456789abcdefghijklmnopqrstuvwxyz",
		Length:   8,
	})
	require.NoError(t, err)

	return NewShortLinkService(store, codes, memory.NewLinkCache(), &util.LinkCacheConfig{TTL: 5 * time.Minute}, zap.NewNop().Sugar())
}

func TestShortLinkService_Create(t *testing.T) {
	svc := newShortLinkFixture(t, memory.NewStorage())
	ctx := context.Background()

	link, err := svc.Create(ctx, 1, "https://example.com/some/very/long/path", true, nil)
	require.NoError(t, err)
	assert.Len(t, link.ShortCode, 8)
	assert.Equal(t, "https://example.com/some/very/long/path", link.TargetURL)
	assert.True(t, link.IsActive)
}

func TestShortLinkService_CreateDefaultsScheme(t *testing.T) {
	svc := newShortLinkFixture(t, memory.NewStorage())
	ctx := context.Background()

	tests := []struct {
		name   string
		input  string
		target string
	}{
		{name: "bare host", input: "example.com/path", target: "https://example.com/path"},
		{name: "https kept", input: "https://example.com", target: "https://example.com"},
		{name: "http kept", input: "http://example.com", target: "http://example.com"},
		{name: "other scheme kept", input: "ftp://example.com", target: "ftp://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, err := svc.Create(ctx, 1, tt.input, true, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.target, link.TargetURL)
		})
	}
}

// collidingStorage forces a configurable number of short-code collisions
// before letting the insert through.
type collidingStorage struct {
	*memory.Storage
	remaining int
	attempts  []string
}

func (s *collidingStorage) CreateShortLink(ctx context.Context, link models.ShortLink) (*models.ShortLink, error) {
	s.attempts = append(s.attempts, link.ShortCode)
	if s.remaining > 0 {
		s.remaining--
		return nil, storage.ErrShortCodeTaken
	}
	return s.Storage.CreateShortLink(ctx, link)
}

func TestShortLinkService_CreateRetriesOnCollision(t *testing.T) {
	store := &collidingStorage{Storage: memory.NewStorage(), remaining: 7}
	svc := newShortLinkFixture(t, store)

	link, err := svc.Create(context.Background(), 1, "https://example.com", true, nil)
	require.NoError(t, err)

	// Seven rejected codes, then the one that stuck. Every attempt used a
	// freshly generated code.
	require.Len(t, store.attempts, 8)
	assert.Equal(t, store.attempts[len(store.attempts)-1], link.ShortCode)
	seen := make(map[string]struct{})
	for _, code := range store.attempts {
		seen[code] = struct{}{}
	}
	assert.Len(t, seen, 8)
}

func TestShortLinkService_Resolve(t *testing.T) {
	store := memory.NewStorage()
	svc := newShortLinkFixture(t, store)
	ctx := context.Background()

	link, err := svc.Create(ctx, 1, "https://example.com", true, nil)
	require.NoError(t, err)

	t.Run("known code", func(t *testing.T) {
		resolved, err := svc.Resolve(ctx, link.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, link.TargetURL, resolved.TargetURL)
	})

	t.Run("cache hit after first resolve", func(t *testing.T) {
		// With the row gone, only the cache can still answer.
		_, err := store.DeleteShortLink(ctx, link.ID, 1)
		require.NoError(t, err)

		resolved, err := svc.Resolve(ctx, link.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, link.TargetURL, resolved.TargetURL)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := svc.Resolve(ctx, "nope1234")
		assert.ErrorIs(t, err, ErrShortLinkNotFound)
	})
}

func TestShortLinkService_UpdateInvalidatesCache(t *testing.T) {
	svc := newShortLinkFixture(t, memory.NewStorage())
	ctx := context.Background()

	link, err := svc.Create(ctx, 1, "https://example.com", true, nil)
	require.NoError(t, err)

	// Prime the cache.
	_, err = svc.Resolve(ctx, link.ShortCode)
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(ctx, link.ID, 1, &inactive, nil)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.NotNil(t, updated.ChangedAt)

	// The next resolve must see the deactivated row, not the cached one.
	resolved, err := svc.Resolve(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.False(t, resolved.IsActive)
	assert.False(t, resolved.Resolvable(time.Now()))
}

func TestShortLinkService_Delete(t *testing.T) {
	svc := newShortLinkFixture(t, memory.NewStorage())
	ctx := context.Background()

	link, err := svc.Create(ctx, 1, "https://example.com", true, nil)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, link.ShortCode)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, link.ID, 1))

	_, err = svc.Resolve(ctx, link.ShortCode)
	assert.ErrorIs(t, err, ErrShortLinkNotFound)
	err = svc.Delete(ctx, link.ID, 1)
	assert.ErrorIs(t, err, ErrShortLinkNotFound)
}

func TestShortLinkService_OwnershipIsEnforced(t *testing.T) {
	svc := newShortLinkFixture(t, memory.NewStorage())
	ctx := context.Background()

	link, err := svc.Create(ctx, 1, "https://example.com", true, nil)
	require.NoError(t, err)

	_, err = svc.Get(ctx, link.ID, 2)
	assert.ErrorIs(t, err, ErrShortLinkNotFound)
	err = svc.Delete(ctx, link.ID, 2)
	assert.ErrorIs(t, err, ErrShortLinkNotFound)
}

func TestShortLinkService_List(t *testing.T) {
	svc := newShortLinkFixture(t, memory.NewStorage())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, 1, "https://example.com", true, nil)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, 2, "https://example.org", true, nil)
	require.NoError(t, err)

	all, err := svc.List(ctx, 1, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	skip, take := 1, 2
	page, err := svc.List(ctx, 1, &skip, &take)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}
