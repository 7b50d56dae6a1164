package models

import "time"

// RefreshToken is the persisted record behind an opaque refresh token.
// Only the sha256 hash of the token value is stored, never the plaintext.
// Rows are never deleted; a row becomes dead once RevokedAt is set or
// ExpiresAt has passed. ReplacedByRefreshTokenID links a rotated token to
// its successor, forming a forward chain per session lineage.
type RefreshToken struct {
	ID                       int64      `json:"id"`
	UserID                   int64      `json:"user_id"`
	TokenHash                string     `json:"-"`
	ExpiresAt                time.Time  `json:"expires_at"`
	RevokedAt                *time.Time `json:"revoked_at,omitempty"`
	ReplacedByRefreshTokenID *int64     `json:"replaced_by_refresh_token_id,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
}

// Active reports whether the token is usable at the given instant:
// not revoked, not rotated and not expired.
func (rt *RefreshToken) Active(now time.Time) bool {
	return rt.RevokedAt == nil && rt.ReplacedByRefreshTokenID == nil && rt.ExpiresAt.After(now)
}
