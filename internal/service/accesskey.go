package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
)

var (
	ErrAccessKeyNotFound = errors.New("access key not found")
	ErrAccessKeyInvalid  = errors.New("access key invalid")
)

// AccessKeyService manages per-user API keys. Secrets follow the same
// one-way rule as refresh tokens: only the sha256 hash is stored, the
// plaintext leaves the server exactly once, in the create response.
type AccessKeyService struct {
	storage storage.Storage
}

func NewAccessKeyService(s storage.Storage) *AccessKeyService {
	return &AccessKeyService{storage: s}
}

// Create returns the stored key and its plaintext secret.
func (s *AccessKeyService) Create(
	ctx context.Context,
	userID int64,
	name string,
	isActive bool,
	expiresAt *time.Time,
) (*models.AccessKey, string, error) {
	token := uuid.NewString()

	key, err := s.storage.CreateAccessKey(ctx, models.AccessKey{
		UserID:    userID,
		Name:      name,
		TokenHash: HashToken(token),
		IsActive:  isActive,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return nil, "", fmt.Errorf("create access key: %w", err)
	}

	return key, token, nil
}

func (s *AccessKeyService) Get(ctx context.Context, id, userID int64) (*models.AccessKey, error) {
	key, err := s.storage.GetAccessKey(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrAccessKeyNotFound) {
			return nil, ErrAccessKeyNotFound
		}
		return nil, fmt.Errorf("get access key: %w", err)
	}
	return key, nil
}

func (s *AccessKeyService) List(ctx context.Context, userID int64, skip, take *int) ([]models.AccessKey, error) {
	keys, err := s.storage.ListAccessKeys(ctx, userID, skip, take)
	if err != nil {
		return nil, fmt.Errorf("list access keys: %w", err)
	}
	return keys, nil
}

func (s *AccessKeyService) Update(
	ctx context.Context,
	id, userID int64,
	name *string,
	isActive *bool,
	expiresAt *time.Time,
) (*models.AccessKey, error) {
	key, err := s.storage.UpdateAccessKey(ctx, id, userID, name, isActive, expiresAt, time.Now())
	if err != nil {
		if errors.Is(err, storage.ErrAccessKeyNotFound) {
			return nil, ErrAccessKeyNotFound
		}
		return nil, fmt.Errorf("update access key: %w", err)
	}
	return key, nil
}

func (s *AccessKeyService) Delete(ctx context.Context, id, userID int64) (bool, error) {
	deleted, err := s.storage.DeleteAccessKey(ctx, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete access key: %w", err)
	}
	return deleted, nil
}

// Authenticate resolves a presented plaintext key to its owning user,
// honoring is_active and expiry.
func (s *AccessKeyService) Authenticate(ctx context.Context, presentedKey string) (*models.User, error) {
	if presentedKey == "" {
		return nil, ErrAccessKeyInvalid
	}

	key, user, err := s.storage.GetAccessKeyByHash(ctx, HashToken(presentedKey))
	if err != nil {
		if errors.Is(err, storage.ErrAccessKeyNotFound) {
			return nil, ErrAccessKeyInvalid
		}
		return nil, fmt.Errorf("authenticate access key: %w", err)
	}

	if !key.Usable(time.Now()) {
		return nil, ErrAccessKeyInvalid
	}

	return user, nil
}
