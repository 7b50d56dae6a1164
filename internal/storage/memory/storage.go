package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
)

// Storage is an in-process implementation of storage.Storage with the same
// semantics as the postgres one, including the guarded rotation. The single
// mutex stands in for the row locks of the real store.
type Storage struct {
	mu sync.RWMutex

	users         map[int64]models.User
	userIDByEmail map[string]int64

	refreshTokens map[int64]models.RefreshToken
	tokenIDByHash map[string]int64

	shortLinks   map[int64]models.ShortLink
	linkIDByCode map[string]int64

	accessKeys  map[int64]models.AccessKey
	keyIDByHash map[string]int64

	engagements []models.ShortLinkEngagement

	nextID int64
}

func NewStorage() *Storage {
	return &Storage{
		users:         make(map[int64]models.User),
		userIDByEmail: make(map[string]int64),
		refreshTokens: make(map[int64]models.RefreshToken),
		tokenIDByHash: make(map[string]int64),
		shortLinks:    make(map[int64]models.ShortLink),
		linkIDByCode:  make(map[string]int64),
		accessKeys:    make(map[int64]models.AccessKey),
		keyIDByHash:   make(map[string]int64),
	}
}

func (s *Storage) newID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Storage) CreateUser(_ context.Context, user models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.userIDByEmail[user.Email]; exists {
		return nil, storage.ErrEmailTaken
	}

	user.ID = s.newID()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	s.users[user.ID] = user
	s.userIDByEmail[user.Email] = user.ID

	created := user
	return &created, nil
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.userIDByEmail[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (s *Storage) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return &user, nil
}

func (s *Storage) CreateRefreshToken(_ context.Context, token models.RefreshToken) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.insertRefreshTokenLocked(token)
	return &created, nil
}

func (s *Storage) insertRefreshTokenLocked(token models.RefreshToken) models.RefreshToken {
	token.ID = s.newID()
	s.refreshTokens[token.ID] = token
	s.tokenIDByHash[token.TokenHash] = token.ID
	return token
}

func (s *Storage) GetRefreshTokenWithUser(_ context.Context, tokenHash string) (*models.RefreshToken, *models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tokenIDByHash[tokenHash]
	if !ok {
		return nil, nil, storage.ErrRefreshTokenNotFound
	}
	token := s.refreshTokens[id]
	user, ok := s.users[token.UserID]
	if !ok {
		return nil, nil, storage.ErrUserNotFound
	}
	return &token, &user, nil
}

func (s *Storage) RotateRefreshTokenTx(
	_ context.Context,
	tokenHash string,
	now time.Time,
	successor models.RefreshToken,
) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.tokenIDByHash[tokenHash]
	if !ok {
		return nil, storage.ErrRefreshTokenNotFound
	}
	current := s.refreshTokens[id]

	if current.ReplacedByRefreshTokenID != nil {
		s.revokeAllLocked(current.UserID, now)
		return nil, storage.ErrRefreshTokenReplaced
	}

	if current.RevokedAt != nil || !current.ExpiresAt.After(now) {
		return nil, storage.ErrRefreshTokenNotActive
	}

	successor.UserID = current.UserID
	created := s.insertRefreshTokenLocked(successor)

	revokedAt := now
	current.RevokedAt = &revokedAt
	current.ReplacedByRefreshTokenID = &created.ID
	s.refreshTokens[current.ID] = current

	return &created, nil
}

func (s *Storage) RevokeRefreshToken(_ context.Context, tokenHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.tokenIDByHash[tokenHash]
	if !ok {
		return nil
	}
	token := s.refreshTokens[id]
	if token.RevokedAt == nil {
		revokedAt := now
		token.RevokedAt = &revokedAt
		s.refreshTokens[id] = token
	}
	return nil
}

func (s *Storage) RevokeAllUserRefreshTokens(_ context.Context, userID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revokeAllLocked(userID, now)
	return nil
}

func (s *Storage) revokeAllLocked(userID int64, now time.Time) {
	for id, token := range s.refreshTokens {
		if token.UserID == userID && token.RevokedAt == nil {
			revokedAt := now
			token.RevokedAt = &revokedAt
			s.refreshTokens[id] = token
		}
	}
}

func (s *Storage) CreateShortLink(_ context.Context, link models.ShortLink) (*models.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.linkIDByCode[link.ShortCode]; exists {
		return nil, storage.ErrShortCodeTaken
	}

	link.ID = s.newID()
	s.shortLinks[link.ID] = link
	s.linkIDByCode[link.ShortCode] = link.ID

	created := link
	return &created, nil
}

func (s *Storage) GetShortLink(_ context.Context, id, userID int64) (*models.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, ok := s.shortLinks[id]
	if !ok || link.UserID != userID {
		return nil, storage.ErrShortLinkNotFound
	}
	return &link, nil
}

func (s *Storage) GetShortLinkByCode(_ context.Context, code string) (*models.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.linkIDByCode[code]
	if !ok {
		return nil, storage.ErrShortLinkNotFound
	}
	link := s.shortLinks[id]
	return &link, nil
}

func (s *Storage) ListShortLinks(_ context.Context, userID int64, skip, take *int) ([]models.ShortLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var links []models.ShortLink
	for _, link := range s.shortLinks {
		if link.UserID == userID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return paginate(links, skip, take), nil
}

func (s *Storage) UpdateShortLink(
	_ context.Context,
	id, userID int64,
	isActive *bool,
	expiresAt *time.Time,
	now time.Time,
) (*models.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.shortLinks[id]
	if !ok || link.UserID != userID {
		return nil, storage.ErrShortLinkNotFound
	}

	if isActive != nil {
		link.IsActive = *isActive
	}
	if expiresAt != nil {
		link.ExpiresAt = expiresAt
	}
	changedAt := now
	link.ChangedAt = &changedAt
	s.shortLinks[id] = link

	return &link, nil
}

func (s *Storage) DeleteShortLink(_ context.Context, id, userID int64) (*models.ShortLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.shortLinks[id]
	if !ok || link.UserID != userID {
		return nil, storage.ErrShortLinkNotFound
	}

	delete(s.shortLinks, id)
	delete(s.linkIDByCode, link.ShortCode)
	return &link, nil
}

func (s *Storage) CreateAccessKey(_ context.Context, key models.AccessKey) (*models.AccessKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key.ID = s.newID()
	s.accessKeys[key.ID] = key
	s.keyIDByHash[key.TokenHash] = key.ID

	created := key
	return &created, nil
}

func (s *Storage) GetAccessKey(_ context.Context, id, userID int64) (*models.AccessKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.accessKeys[id]
	if !ok || key.UserID != userID {
		return nil, storage.ErrAccessKeyNotFound
	}
	return &key, nil
}

func (s *Storage) GetAccessKeyByHash(_ context.Context, tokenHash string) (*models.AccessKey, *models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.keyIDByHash[tokenHash]
	if !ok {
		return nil, nil, storage.ErrAccessKeyNotFound
	}
	key := s.accessKeys[id]
	user, ok := s.users[key.UserID]
	if !ok {
		return nil, nil, storage.ErrUserNotFound
	}
	return &key, &user, nil
}

func (s *Storage) ListAccessKeys(_ context.Context, userID int64, skip, take *int) ([]models.AccessKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []models.AccessKey
	for _, key := range s.accessKeys {
		if key.UserID == userID {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Name > keys[j].Name
	})
	return paginate(keys, skip, take), nil
}

func (s *Storage) UpdateAccessKey(
	_ context.Context,
	id, userID int64,
	name *string,
	isActive *bool,
	expiresAt *time.Time,
	now time.Time,
) (*models.AccessKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.accessKeys[id]
	if !ok || key.UserID != userID {
		return nil, storage.ErrAccessKeyNotFound
	}

	if name != nil {
		key.Name = *name
	}
	if isActive != nil {
		key.IsActive = *isActive
	}
	if expiresAt != nil {
		key.ExpiresAt = expiresAt
	}
	changedAt := now
	key.ChangedAt = &changedAt
	s.accessKeys[id] = key

	return &key, nil
}

func (s *Storage) DeleteAccessKey(_ context.Context, id, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.accessKeys[id]
	if !ok || key.UserID != userID {
		return false, nil
	}

	delete(s.accessKeys, id)
	delete(s.keyIDByHash, key.TokenHash)
	return true, nil
}

func (s *Storage) CreateEngagement(_ context.Context, engagement models.ShortLinkEngagement) (*models.ShortLinkEngagement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	engagement.ID = s.newID()
	s.engagements = append(s.engagements, engagement)

	created := engagement
	return &created, nil
}

func (s *Storage) ListEngagements(_ context.Context, userID int64, filter models.EngagementFilter) ([]models.ShortLinkEngagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchEngagementsLocked(userID, filter)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Skip, filter.Take), nil
}

func (s *Storage) SummarizeEngagements(_ context.Context, userID int64, filter models.EngagementFilter) (*models.EngagementSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &models.EngagementSummary{
		Countries: make(map[string]int64),
		Referers:  make(map[string]int64),
		From:      filter.From,
		To:        filter.To,
	}

	clients := make(map[string]struct{})
	for _, e := range s.matchEngagementsLocked(userID, filter) {
		summary.TotalClicks++
		clients[e.ClientAddressHash] = struct{}{}
		summary.Countries[bucketOrUnknown(e.Country)]++
		summary.Referers[bucketOrUnknown(e.Referer)]++
	}
	summary.TotalClients = int64(len(clients))

	return summary, nil
}

func (s *Storage) matchEngagementsLocked(userID int64, filter models.EngagementFilter) []models.ShortLinkEngagement {
	var matched []models.ShortLinkEngagement
	for _, e := range s.engagements {
		link, ok := s.shortLinks[e.ShortLinkID]
		if !ok || link.UserID != userID {
			continue
		}
		if !link.IsActive && !filter.IncludeInactive {
			continue
		}
		if filter.ShortLinkID != nil && e.ShortLinkID != *filter.ShortLinkID {
			continue
		}
		if e.CreatedAt.Before(filter.From) || e.CreatedAt.After(filter.To) {
			continue
		}
		matched = append(matched, e)
	}
	return matched
}

func bucketOrUnknown(value string) string {
	if value == "" {
		return "?"
	}
	return value
}

func paginate[T any](items []T, skip, take *int) []T {
	offset := 0
	if skip != nil && *skip > 0 {
		offset = *skip
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if take != nil && *take >= 0 && *take < len(items) {
		items = items[:*take]
	}
	return items
}
