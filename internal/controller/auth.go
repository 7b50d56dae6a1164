package controller

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/michel-pi/shortly/internal/models"
)

const refreshCookieName = "rt"

// The cookie is scoped to /api so redirects never carry it.
const refreshCookiePath = "/api"

// (POST /api/auth/login).
func (c *Controller) Login(ctx echo.Context) error {
	var req models.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	accessToken, refreshToken, refreshExpiry, err := c.authService.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	setRefreshCookie(ctx, refreshToken, refreshExpiry)
	return ctx.JSON(http.StatusOK, models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// (POST /api/auth/refresh).
//
// The refresh token is taken from the rt cookie when present, otherwise
// from the request body.
func (c *Controller) Refresh(ctx echo.Context) error {
	refreshToken := refreshTokenFromRequest(ctx)
	if refreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh token is missing")
	}

	accessToken, newRefreshToken, refreshExpiry, err := c.authService.Refresh(ctx.Request().Context(), refreshToken)
	if err != nil {
		clearRefreshCookie(ctx)
		return err
	}

	setRefreshCookie(ctx, newRefreshToken, refreshExpiry)
	return ctx.JSON(http.StatusOK, models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	})
}

// (POST /api/auth/logout).
func (c *Controller) Logout(ctx echo.Context) error {
	accessToken, _ := ctx.Get(models.MwTokenKey).(string)
	refreshToken := refreshTokenFromRequest(ctx)

	if err := c.authService.Logout(ctx.Request().Context(), accessToken, refreshToken); err != nil {
		return err
	}

	clearRefreshCookie(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

// (POST /api/auth/logout-all).
func (c *Controller) LogoutAll(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}
	accessToken, _ := ctx.Get(models.MwTokenKey).(string)

	if err := c.authService.LogoutAll(ctx.Request().Context(), identity.UserID, accessToken); err != nil {
		return err
	}

	clearRefreshCookie(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

// (GET /api/auth/me).
func (c *Controller) GetCurrentUser(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	user, err := c.authService.GetUser(ctx.Request().Context(), identity.UserID)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, models.UserResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Roles: user.Roles,
	})
}

func refreshTokenFromRequest(ctx echo.Context) string {
	if cookie, err := ctx.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var req models.RefreshRequest
	if err := ctx.Bind(&req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func setRefreshCookie(ctx echo.Context, token string, expiry time.Time) {
	ctx.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		Expires:  expiry,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearRefreshCookie(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
