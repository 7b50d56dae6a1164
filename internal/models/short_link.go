package models

import "time"

type ShortLink struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	TargetURL string     `json:"target_url"`
	ShortCode string     `json:"short_code"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ChangedAt *time.Time `json:"changed_at,omitempty"`
}

// Resolvable reports whether the link may still serve redirects.
func (l *ShortLink) Resolvable(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	if l.ExpiresAt != nil && !l.ExpiresAt.After(now) {
		return false
	}
	return true
}
