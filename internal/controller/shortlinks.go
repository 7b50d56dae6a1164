package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/michel-pi/shortly/internal/models"
)

// (POST /api/links).
func (c *Controller) CreateShortLink(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	var req models.CreateShortLinkRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TargetURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "target_url is required")
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	link, err := c.shortLinks.Create(ctx.Request().Context(), identity.UserID, req.TargetURL, isActive, req.ExpiresAt)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, link)
}

// (GET /api/links).
func (c *Controller) ListShortLinks(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	skip, take, err := parsePagination(ctx)
	if err != nil {
		return err
	}

	links, err := c.shortLinks.List(ctx.Request().Context(), identity.UserID, skip, take)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, links)
}

// (GET /api/links/:id).
func (c *Controller) GetShortLink(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	id, err := parseIDParam(ctx)
	if err != nil {
		return err
	}

	link, err := c.shortLinks.Get(ctx.Request().Context(), id, identity.UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, link)
}

// (PATCH /api/links/:id).
func (c *Controller) UpdateShortLink(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	id, err := parseIDParam(ctx)
	if err != nil {
		return err
	}

	var req models.UpdateShortLinkRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	link, err := c.shortLinks.Update(ctx.Request().Context(), id, identity.UserID, req.IsActive, req.ExpiresAt)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, link)
}

// (DELETE /api/links/:id).
func (c *Controller) DeleteShortLink(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	id, err := parseIDParam(ctx)
	if err != nil {
		return err
	}

	if err := c.shortLinks.Delete(ctx.Request().Context(), id, identity.UserID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
