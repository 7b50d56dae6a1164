package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/michel-pi/shortly/internal/controller"
	"github.com/michel-pi/shortly/internal/service"
	"github.com/michel-pi/shortly/internal/storage"
	"github.com/michel-pi/shortly/internal/util"
)

func ErrorHandler(log *zap.SugaredLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		if isUnauthorizedError(err) {
			c.JSON(http.StatusUnauthorized, controller.ErrorResponse{Reason: err.Error()})
			return
		}

		if isNotFoundError(err) {
			c.JSON(http.StatusNotFound, controller.ErrorResponse{Reason: err.Error()})
			return
		}

		var customErr util.ResponseError
		if errors.As(err, &customErr) {
			c.JSON(customErr.Status, controller.ErrorResponse{Reason: customErr.Msg})
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			if he.Code == http.StatusInternalServerError {
				log.Errorw("HTTP error", "error", err, "uri", c.Request().RequestURI)
			}
			if err := c.JSON(he.Code, controller.ErrorResponse{Reason: fmt.Sprintf("%v", he.Message)}); err != nil {
				log.Errorw("failed to write json response", "error", err)
			}
			return
		}

		log.Errorw("unhandled error", "error", err, "uri", c.Request().RequestURI)
		c.JSON(http.StatusInternalServerError, controller.ErrorResponse{Reason: "internal server error"})
	}
}

func isUnauthorizedError(err error) bool {
	return errors.Is(err, service.ErrInvalidCredentials) ||
		errors.Is(err, service.ErrInvalidRefreshToken) ||
		errors.Is(err, service.ErrRefreshTokenReused) ||
		errors.Is(err, service.ErrTokenInvalid) ||
		errors.Is(err, service.ErrTokenMalformed) ||
		errors.Is(err, service.ErrTokenRevoked) ||
		errors.Is(err, service.ErrAccessKeyInvalid)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, service.ErrShortLinkNotFound) ||
		errors.Is(err, service.ErrAccessKeyNotFound) ||
		errors.Is(err, service.ErrRefreshTokenNotFound) ||
		errors.Is(err, storage.ErrUserNotFound)
}
