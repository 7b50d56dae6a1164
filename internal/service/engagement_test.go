package service

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage/memory"
)

// staticResolver maps fixed addresses to countries; everything else is
// unknown.
type staticResolver map[string]string

func (r staticResolver) LookupCountry(ip net.IP) string {
	if ip == nil {
		return "n/a"
	}
	if country, ok := r[ip.String()]; ok {
		return country
	}
	return "n/a"
}

func newEngagementFixture(t *testing.T) (*EngagementService, *memory.Storage, *models.ShortLink) {
	t.Helper()

	store := memory.NewStorage()
	user, err := store.CreateUser(context.Background(), models.User{
		Email:     "user@example.com",
		Name:      "Test User",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	link, err := store.CreateShortLink(context.Background(), models.ShortLink{
		UserID:    user.ID,
		TargetURL: "https://example.com",
		ShortCode: "abcd1234",
		IsActive:  true,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	resolver := staticResolver{
		"203.0.113.1": "Germany",
		"203.0.113.2": "France",
	}
	return NewEngagementService(store, resolver, zap.NewNop().Sugar()), store, link
}

func TestEngagementService_Record(t *testing.T) {
	svc, _, link := newEngagementFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, link.ID, "203.0.113.1", "curl/8.0", "https://news.example"))

	engagements, err := svc.List(ctx, link.UserID, models.EngagementFilter{})
	require.NoError(t, err)
	require.Len(t, engagements, 1)

	recorded := engagements[0]
	assert.Equal(t, link.ID, recorded.ShortLinkID)
	assert.Equal(t, "Germany", recorded.Country)
	assert.Equal(t, "curl/8.0", recorded.UserAgent)

	// The raw address must not survive, only its hash.
	assert.NotContains(t, recorded.ClientAddressHash, "203.0.113.1")
	assert.Equal(t, HashToken("203.0.113.1"), recorded.ClientAddressHash)
}

func TestEngagementService_Summary(t *testing.T) {
	svc, _, link := newEngagementFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, link.ID, "203.0.113.1", "", "https://news.example"))
	require.NoError(t, svc.Record(ctx, link.ID, "203.0.113.1", "", ""))
	require.NoError(t, svc.Record(ctx, link.ID, "203.0.113.2", "", "https://news.example"))

	summary, err := svc.Summary(ctx, link.UserID, models.EngagementFilter{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.TotalClicks)
	assert.Equal(t, int64(2), summary.TotalClients)
	assert.Equal(t, int64(2), summary.Countries["Germany"])
	assert.Equal(t, int64(1), summary.Countries["France"])
	assert.Equal(t, int64(2), summary.Referers["https://news.example"])

	// Missing referers land in the "?" bucket.
	assert.Equal(t, int64(1), summary.Referers["?"])
}

func TestEngagementService_SummaryRange(t *testing.T) {
	svc, store, link := newEngagementFixture(t)
	ctx := context.Background()

	old := models.ShortLinkEngagement{
		ShortLinkID:       link.ID,
		ClientAddressHash: HashToken("203.0.113.9"),
		CreatedAt:         time.Now().Add(-48 * time.Hour),
	}
	_, err := store.CreateEngagement(ctx, old)
	require.NoError(t, err)
	require.NoError(t, svc.Record(ctx, link.ID, "203.0.113.1", "", ""))

	t.Run("open range covers everything", func(t *testing.T) {
		summary, err := svc.Summary(ctx, link.UserID, models.EngagementFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.TotalClicks)
	})

	t.Run("window excludes old clicks", func(t *testing.T) {
		summary, err := svc.Summary(ctx, link.UserID, models.EngagementFilter{
			From: time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), summary.TotalClicks)
	})
}

func TestEngagementService_InactiveLinksAreExcludedByDefault(t *testing.T) {
	svc, store, link := newEngagementFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, link.ID, "203.0.113.1", "", ""))

	inactive := false
	_, err := store.UpdateShortLink(ctx, link.ID, link.UserID, &inactive, nil, time.Now())
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, link.UserID, models.EngagementFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalClicks)

	summary, err = svc.Summary(ctx, link.UserID, models.EngagementFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalClicks)
}

func TestEngagementService_OwnershipIsEnforced(t *testing.T) {
	svc, _, link := newEngagementFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, link.ID, "203.0.113.1", "", ""))

	engagements, err := svc.List(ctx, link.UserID+1, models.EngagementFilter{})
	require.NoError(t, err)
	assert.Empty(t, engagements)
}
