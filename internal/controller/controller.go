package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/service"
	"github.com/michel-pi/shortly/internal/util"
)

type ErrorResponse struct {
	Reason string `json:"reason"`
}

type Controller struct {
	zapLogger   *zap.SugaredLogger
	authService *service.AuthService
	shortLinks  *service.ShortLinkService
	accessKeys  *service.AccessKeyService
	engagements *service.EngagementService
}

func NewController(
	logger *zap.SugaredLogger,
	authService *service.AuthService,
	shortLinks *service.ShortLinkService,
	accessKeys *service.AccessKeyService,
	engagements *service.EngagementService,
) *Controller {
	return &Controller{
		zapLogger:   logger,
		authService: authService,
		shortLinks:  shortLinks,
		accessKeys:  accessKeys,
		engagements: engagements,
	}
}

// (GET /api/ping).
func (c *Controller) CheckServer(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, "ok")
}

// currentIdentity returns the authenticated caller placed in the request
// context by the auth middleware.
func currentIdentity(ctx echo.Context) (*service.AccessTokenIdentity, error) {
	identity, ok := ctx.Get(models.MwUserKey).(*service.AccessTokenIdentity)
	if !ok || identity == nil {
		return nil, util.NewResponseError(http.StatusUnauthorized, "not authenticated")
	}
	return identity, nil
}

func parsePagination(ctx echo.Context) (skip, take *int, err error) {
	if skip, err = parseOptionalInt(ctx.QueryParam("skip")); err != nil {
		return nil, nil, util.NewResponseError(http.StatusBadRequest, "invalid skip parameter")
	}
	if take, err = parseOptionalInt(ctx.QueryParam("take")); err != nil {
		return nil, nil, util.NewResponseError(http.StatusBadRequest, "invalid take parameter")
	}
	return skip, take, nil
}

func parseOptionalInt(v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, errors.New("not a non-negative integer")
	}
	return &n, nil
}

func parseOptionalTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

func parseIDParam(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.NewResponseError(http.StatusBadRequest, "invalid id %q", ctx.Param("id"))
	}
	return id, nil
}
