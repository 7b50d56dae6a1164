package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/michel-pi/shortly/internal/models"
	"github.com/michel-pi/shortly/internal/service"
)

// (GET /r/:code) and (HEAD /r/:code).
//
// HEAD requests resolve the link without recording an engagement, so link
// checkers and previews do not inflate click counts.
func (c *Controller) RedirectShortLink(ctx echo.Context) error {
	code := ctx.Param("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusNotFound, "unknown short code")
	}

	link, err := c.shortLinks.Resolve(ctx.Request().Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrShortLinkNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown short code")
		}
		return err
	}

	if !link.Resolvable(time.Now()) {
		return echo.NewHTTPError(http.StatusGone, "short link is no longer available")
	}

	if ctx.Request().Method != http.MethodHead {
		req := ctx.Request()
		c.engagements.RecordAsync(link.ID, ctx.RealIP(), req.UserAgent(), req.Referer())
	}

	return ctx.Redirect(http.StatusFound, link.TargetURL)
}

// (GET /r/:code/target).
//
// JSON resolve for clients that want the destination without following a
// redirect. Counts as a click like the redirect does.
func (c *Controller) ResolveShortLinkTarget(ctx echo.Context) error {
	code := ctx.Param("code")

	link, err := c.shortLinks.Resolve(ctx.Request().Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrShortLinkNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown short code")
		}
		return err
	}

	if !link.Resolvable(time.Now()) {
		return echo.NewHTTPError(http.StatusGone, "short link is no longer available")
	}

	req := ctx.Request()
	c.engagements.RecordAsync(link.ID, ctx.RealIP(), req.UserAgent(), req.Referer())

	return ctx.JSON(http.StatusOK, models.ResolveResponse{TargetURL: link.TargetURL})
}
