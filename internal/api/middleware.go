package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/service"
)

const (
	APIKeyHeader = "X-API-Key"

	bearerPrefix = "Bearer "
)

// publicAPIPaths are reachable without credentials. Everything else under
// /api requires either a bearer token or an access key.
var publicAPIPaths = map[string]struct{}{
	"/api/ping":         {},
	"/api/auth/login":   {},
	"/api/auth/refresh": {},
}

// AuthMiddleware authenticates /api requests. A bearer access token takes
// precedence; an X-API-Key header is accepted as the programmatic
// alternative. The resolved identity and, for bearer auth, the raw token
// are stored in the request context.
func AuthMiddleware(jwtService *service.JWTService, accessKeys *service.AccessKeyService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := publicAPIPaths[c.Path()]; ok {
				return next(c)
			}

			if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
				if !strings.HasPrefix(auth, bearerPrefix) {
					return echo.NewHTTPError(http.StatusUnauthorized, "malformed authorization header")
				}
				token := strings.TrimPrefix(auth, bearerPrefix)

				identity, err := jwtService.ValidateAccessToken(c.Request().Context(), token)
				if err != nil {
					return err
				}

				c.Set(models.MwUserKey, identity)
				c.Set(models.MwTokenKey, token)
				return next(c)
			}

			if apiKey := c.Request().Header.Get(APIKeyHeader); apiKey != "" {
				user, err := accessKeys.Authenticate(c.Request().Context(), apiKey)
				if err != nil {
					return err
				}

				c.Set(models.MwUserKey, &service.AccessTokenIdentity{
					UserID: user.ID,
					Email:  user.Email,
					Name:   user.Name,
					Roles:  user.Roles,
				})
				return next(c)
			}

			return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
		}
	}
}

func GetLoggerMiddlewareConfig(a *API) echomiddleware.RequestLoggerConfig {
	return echomiddleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,

		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", c.Request().Method,
				"uri", v.URI,
				"status", v.Status,
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				a.log.Errorw("Request", fields...)
			} else {
				a.log.Infow("Request", fields...)
			}
			return nil
		},
	}
}
