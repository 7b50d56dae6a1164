package models

import "time"

// AccessKey authenticates programmatic API clients. The key secret is a
// random value whose sha256 hash is stored; the plaintext is handed out
// exactly once, on creation.
type AccessKey struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Name      string     `json:"name"`
	TokenHash string     `json:"-"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ChangedAt *time.Time `json:"changed_at,omitempty"`
}

// Usable reports whether the key currently authenticates requests.
func (k *AccessKey) Usable(now time.Time) bool {
	if !k.IsActive {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return true
}
