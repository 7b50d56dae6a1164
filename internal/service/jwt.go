package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/storage"
	"github.com/michel-pi/shortly/internal/util"
)

var (
	ErrTokenInvalid         = errors.New("token invalid")
	ErrTokenMalformed       = errors.New("token is malformed")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrInvalidUserID        = errors.New("invalid userID")
	ErrInvalidSigningMethod = errors.New("invalid signing method")
)

// JWTService mints and validates short-lived access tokens. Logged-out
// tokens sit in the blacklist until their natural expiry.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	leeway     time.Duration
	blacklist  storage.TokenBlacklist
}

func NewJWTService(cfg *util.TokenConfig, deriver *SecretDeriver, blacklist storage.TokenBlacklist) *JWTService {
	return &JWTService{
		signingKey: deriver.SigningKey(),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		leeway:     cfg.Leeway,
		blacklist:  blacklist,
	}
}

type accessClaims struct {
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// CreateAccessToken mints an HS512 signed token with a fresh JTI.
func (ts *JWTService) CreateAccessToken(user *models.User, now time.Time) (string, error) {
	claims := &accessClaims{
		Email: user.Email,
		Name:  user.Name,
		Roles: user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    ts.issuer,
			Audience:  jwt.ClaimStrings{ts.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signedToken, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", fmt.Errorf("signed string: %w", err)
	}

	return signedToken, nil
}

// AccessTokenIdentity is what the HTTP layer learns about the caller.
type AccessTokenIdentity struct {
	UserID int64
	Email  string
	Name   string
	Roles  []string
}

// ValidateAccessToken checks the blacklist first, then signature, issuer,
// audience and expiry.
func (ts *JWTService) ValidateAccessToken(ctx context.Context, token string) (*AccessTokenIdentity, error) {
	isInvalidated, err := ts.blacklist.IsTokenInvalidated(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to check if token is invalidated: %w", err)
	}
	if isInvalidated {
		return nil, ErrTokenRevoked
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(ts.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(ts.issuer),
		jwt.WithAudience(ts.audience),
	}

	parsedToken, err := jwt.ParseWithClaims(
		token,
		&accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
				return nil, ErrInvalidSigningMethod
			}
			return ts.signingKey, nil
		},
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if parsedToken == nil || !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(*accessClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidUserID
	}

	return &AccessTokenIdentity{
		UserID: userID,
		Email:  claims.Email,
		Name:   claims.Name,
		Roles:  claims.Roles,
	}, nil
}

// InvalidateAccessToken blacklists the token for its remaining lifetime.
func (ts *JWTService) InvalidateAccessToken(ctx context.Context, accessToken string) error {
	claims, err := ts.getClaimsFromToken(accessToken)
	if err != nil {
		return fmt.Errorf("get claims from token: %w", err)
	}

	expiration := time.Until(claims.ExpiresAt.Time)
	if expiration <= 0 {
		return nil
	}

	if err := ts.blacklist.InvalidateToken(ctx, accessToken, expiration); err != nil {
		return fmt.Errorf("invalidate token: %w", err)
	}
	return nil
}

func (ts *JWTService) getClaimsFromToken(token string) (*accessClaims, error) {
	parsedToken, _, err := new(jwt.Parser).ParseUnverified(token, &accessClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	claims, ok := parsedToken.Claims.(*accessClaims)
	if !ok || claims.ExpiresAt == nil {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
