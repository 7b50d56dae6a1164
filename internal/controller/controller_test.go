package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/service"
	"github.com/michel-pi/shortly/internal/storage/memory"
	"github.com/michel-pi/shortly/internal/util"
)

const testPassword = "hunter2hunter2"

type fixture struct {
	controller *Controller
	store      *memory.Storage
	user       *models.User
	shortLinks *service.ShortLinkService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStorage()

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := store.CreateUser(context.Background(), models.User{
		Email:        "user@example.com",
		Name:         "Test User",
		PasswordHash: string(passwordHash),
		Roles:        []string{"user"},
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	tokenCfg := &util.TokenConfig{
		Issuer:     "shortly",
		Audience:   "shortly-web",
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
		Leeway:     time.Minute,
	}
	deriver, err := service.NewSecretDeriver(&util.SecretConfig{
		SigningKeyPassphrase: "test passphrase",
		SaltPlaintext:        "test-salt",
		Iterations:           util.MinKDFIterations,
		HashAlgorithm:        "SHA256",
	})
	require.NoError(t, err)

	jwtService := service.NewJWTService(tokenCfg, deriver, memory.NewTokenBlacklist())
	refreshTokens := service.NewRefreshTokenService(tokenCfg, store)
	authService := service.NewAuthService(store, jwtService, refreshTokens, logger)

	codes, err := service.NewShortCodeGenerator(&util.ShortCodeConfig{
		Alphabet: "0123456789abcdefghijklmnopqrstuvwxyz",
		Length:   8,
	})
	require.NoError(t, err)
	shortLinks := service.NewShortLinkService(store, codes, memory.NewLinkCache(), &util.LinkCacheConfig{TTL: 5 * time.Minute}, logger)
	accessKeys := service.NewAccessKeyService(store)
	engagements := service.NewEngagementService(store, service.NoopCountryResolver{}, logger)

	return &fixture{
		controller: NewController(logger, authService, shortLinks, accessKeys, engagements),
		store:      store,
		user:       user,
		shortLinks: shortLinks,
	}
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == refreshCookieName {
			return cookie
		}
	}
	t.Fatal("no refresh cookie in response")
	return nil
}

func TestController_Login(t *testing.T) {
	f := newFixture(t)

	ctx, rec := newJSONContext(http.MethodPost, "/api/auth/login", `{"email":"user@example.com","password":"hunter2hunter2"}`)
	require.NoError(t, f.controller.Login(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, rec.Body.String(), "access_token")

	cookie := refreshCookie(t, rec)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, refreshCookiePath, cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
}

func TestController_LoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)

	ctx, _ := newJSONContext(http.MethodPost, "/api/auth/login", `{"email":"user@example.com","password":"wrong"}`)
	err := f.controller.Login(ctx)
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	ctx, _ = newJSONContext(http.MethodPost, "/api/auth/login", `{"email":"user@example.com"}`)
	err = f.controller.Login(ctx)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestController_RefreshFromCookie(t *testing.T) {
	f := newFixture(t)

	loginCtx, loginRec := newJSONContext(http.MethodPost, "/api/auth/login", `{"email":"user@example.com","password":"hunter2hunter2"}`)
	require.NoError(t, f.controller.Login(loginCtx))
	cookie := refreshCookie(t, loginRec)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: cookie.Value})
	rec := httptest.NewRecorder()
	require.NoError(t, f.controller.Refresh(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)

	rotated := refreshCookie(t, rec)
	assert.NotEmpty(t, rotated.Value)
	assert.NotEqual(t, cookie.Value, rotated.Value)

	// Replaying the pre-rotation cookie is reuse; the handler clears the
	// cookie and surfaces the protocol error.
	replayReq := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	replayReq.AddCookie(&http.Cookie{Name: refreshCookieName, Value: cookie.Value})
	replayRec := httptest.NewRecorder()
	err := f.controller.Refresh(e.NewContext(replayReq, replayRec))
	assert.ErrorIs(t, err, service.ErrRefreshTokenReused)

	cleared := refreshCookie(t, replayRec)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestController_RefreshFromBody(t *testing.T) {
	f := newFixture(t)

	loginCtx, loginRec := newJSONContext(http.MethodPost, "/api/auth/login", `{"email":"user@example.com","password":"hunter2hunter2"}`)
	require.NoError(t, f.controller.Login(loginCtx))
	token := refreshCookie(t, loginRec).Value

	ctx, rec := newJSONContext(http.MethodPost, "/api/auth/refresh", `{"refresh_token":"`+token+`"}`)
	require.NoError(t, f.controller.Refresh(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestController_RefreshWithoutToken(t *testing.T) {
	f := newFixture(t)

	ctx, _ := newJSONContext(http.MethodPost, "/api/auth/refresh", "")
	err := f.controller.Refresh(ctx)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func redirectContext(method, code string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/r/"+code, nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetPath("/r/:code")
	ctx.SetParamNames("code")
	ctx.SetParamValues(code)
	return ctx, rec
}

func TestController_Redirect(t *testing.T) {
	f := newFixture(t)

	link, err := f.shortLinks.Create(context.Background(), f.user.ID, "https://example.com/landing", true, nil)
	require.NoError(t, err)

	t.Run("active link", func(t *testing.T) {
		ctx, rec := redirectContext(http.MethodGet, link.ShortCode)
		require.NoError(t, f.controller.RedirectShortLink(ctx))
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://example.com/landing", rec.Header().Get(echo.HeaderLocation))
	})

	t.Run("head resolves without recording", func(t *testing.T) {
		ctx, rec := redirectContext(http.MethodHead, link.ShortCode)
		require.NoError(t, f.controller.RedirectShortLink(ctx))
		assert.Equal(t, http.StatusFound, rec.Code)
	})

	t.Run("unknown code", func(t *testing.T) {
		ctx, _ := redirectContext(http.MethodGet, "missing1")
		err := f.controller.RedirectShortLink(ctx)

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})

	t.Run("inactive link is gone", func(t *testing.T) {
		inactive := false
		_, err := f.shortLinks.Update(context.Background(), link.ID, f.user.ID, &inactive, nil)
		require.NoError(t, err)

		ctx, _ := redirectContext(http.MethodGet, link.ShortCode)
		err = f.controller.RedirectShortLink(ctx)

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusGone, httpErr.Code)
	})

	t.Run("expired link is gone", func(t *testing.T) {
		expired := time.Now().Add(-time.Minute)
		active := true
		fresh, err := f.shortLinks.Create(context.Background(), f.user.ID, "https://example.com", active, &expired)
		require.NoError(t, err)

		ctx, _ := redirectContext(http.MethodGet, fresh.ShortCode)
		err = f.controller.RedirectShortLink(ctx)

		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusGone, httpErr.Code)
	})
}

func TestController_ResolveTarget(t *testing.T) {
	f := newFixture(t)

	link, err := f.shortLinks.Create(context.Background(), f.user.ID, "https://example.com/landing", true, nil)
	require.NoError(t, err)

	ctx, rec := redirectContext(http.MethodGet, link.ShortCode)
	require.NoError(t, f.controller.ResolveShortLinkTarget(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"target_url":"https://example.com/landing"`)

	ctx, _ = redirectContext(http.MethodGet, "missing1")
	err = f.controller.ResolveShortLinkTarget(ctx)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestController_CreateShortLinkRequiresIdentity(t *testing.T) {
	f := newFixture(t)

	ctx, _ := newJSONContext(http.MethodPost, "/api/links", `{"target_url":"https://example.com"}`)
	err := f.controller.CreateShortLink(ctx)

	var respErr util.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusUnauthorized, respErr.Status)
}

func TestController_CreateShortLink(t *testing.T) {
	f := newFixture(t)

	ctx, rec := newJSONContext(http.MethodPost, "/api/links", `{"target_url":"example.com/page"}`)
	ctx.Set(models.MwUserKey, &service.AccessTokenIdentity{UserID: f.user.ID})

	require.NoError(t, f.controller.CreateShortLink(ctx))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://example.com/page")
	assert.Contains(t, rec.Body.String(), "short_code")
}

func TestController_CreateAccessKeyReturnsSecretOnce(t *testing.T) {
	f := newFixture(t)

	createCtx, createRec := newJSONContext(http.MethodPost, "/api/keys", `{"name":"ci"}`)
	createCtx.Set(models.MwUserKey, &service.AccessTokenIdentity{UserID: f.user.ID})
	require.NoError(t, f.controller.CreateAccessKey(createCtx))
	require.Equal(t, http.StatusCreated, createRec.Code)
	assert.Contains(t, createRec.Body.String(), `"token"`)

	listCtx, listRec := newJSONContext(http.MethodGet, "/api/keys", "")
	listCtx.Set(models.MwUserKey, &service.AccessTokenIdentity{UserID: f.user.ID})
	require.NoError(t, f.controller.ListAccessKeys(listCtx))
	require.Equal(t, http.StatusOK, listRec.Code)
	assert.NotContains(t, listRec.Body.String(), `"token"`)
}
