package models

import "time"

const (
	MwSchemeAPIKeyAuth = "ApiKeyAuth"
	MwSchemeBearerAuth = "BearerAuth"

	MwAPIKeyHeader = "X-API-Key"

	MwUserKey  = "user"
	MwTokenKey = "token"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type UserResponse struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

type CreateShortLinkRequest struct {
	TargetURL string     `json:"target_url"`
	IsActive  *bool      `json:"is_active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type UpdateShortLinkRequest struct {
	IsActive  *bool      `json:"is_active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type CreateAccessKeyRequest struct {
	Name      string     `json:"name"`
	IsActive  *bool      `json:"is_active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type UpdateAccessKeyRequest struct {
	Name      *string    `json:"name,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type ResolveResponse struct {
	TargetURL string `json:"target_url"`
}

// AccessKeyResponse carries the plaintext key secret only in the create
// response; every other endpoint leaves Token empty.
type AccessKeyResponse struct {
	AccessKey
	Token string `json:"token,omitempty"`
}
