package controller

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/michel-pi/shortly/internal/models"
)

// (GET /api/stats/engagements).
func (c *Controller) ListEngagements(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	filter, err := engagementFilterFromQuery(ctx)
	if err != nil {
		return err
	}

	engagements, err := c.engagements.List(ctx.Request().Context(), identity.UserID, filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, engagements)
}

// (GET /api/stats/summary).
func (c *Controller) GetEngagementSummary(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	filter, err := engagementFilterFromQuery(ctx)
	if err != nil {
		return err
	}

	summary, err := c.engagements.Summary(ctx.Request().Context(), identity.UserID, filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summary)
}

func engagementFilterFromQuery(ctx echo.Context) (models.EngagementFilter, error) {
	var filter models.EngagementFilter
	var err error

	if filter.From, err = parseOptionalTime(ctx.QueryParam("from")); err != nil {
		return filter, echo.NewHTTPError(http.StatusBadRequest, "invalid from parameter, expected RFC 3339")
	}
	if filter.To, err = parseOptionalTime(ctx.QueryParam("to")); err != nil {
		return filter, echo.NewHTTPError(http.StatusBadRequest, "invalid to parameter, expected RFC 3339")
	}

	if v := ctx.QueryParam("short_link_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "invalid short_link_id parameter")
		}
		filter.ShortLinkID = &id
	}

	if v := ctx.QueryParam("include_inactive"); v != "" {
		includeInactive, err := strconv.ParseBool(v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "invalid include_inactive parameter")
		}
		filter.IncludeInactive = includeInactive
	}

	if filter.Skip, filter.Take, err = parsePagination(ctx); err != nil {
		return filter, err
	}

	return filter, nil
}
