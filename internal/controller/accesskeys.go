package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/michel-pi/shortly/internal/models"
)

// (POST /api/keys).
func (c *Controller) CreateAccessKey(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	var req models.CreateAccessKeyRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	key, token, err := c.accessKeys.Create(ctx.Request().Context(), identity.UserID, req.Name, isActive, req.ExpiresAt)
	if err != nil {
		return err
	}

	// The plaintext secret is shown exactly once.
	return ctx.JSON(http.StatusCreated, models.AccessKeyResponse{
		AccessKey: *key,
		Token:     token,
	})
}

// (GET /api/keys).
func (c *Controller) ListAccessKeys(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	skip, take, err := parsePagination(ctx)
	if err != nil {
		return err
	}

	keys, err := c.accessKeys.List(ctx.Request().Context(), identity.UserID, skip, take)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, keys)
}

// (GET /api/keys/:id).
func (c *Controller) GetAccessKey(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	id, err := parseIDParam(ctx)
	if err != nil {
		return err
	}

	key, err := c.accessKeys.Get(ctx.Request().Context(), id, identity.UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, key)
}

// (PATCH /api/keys/:id).
func (c *Controller) UpdateAccessKey(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	id, err := parseIDParam(ctx)
	if err != nil {
		return err
	}

	var req models.UpdateAccessKeyRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	key, err := c.accessKeys.Update(ctx.Request().Context(), id, identity.UserID, req.Name, req.IsActive, req.ExpiresAt)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, key)
}

// (DELETE /api/keys/:id).
func (c *Controller) DeleteAccessKey(ctx echo.Context) error {
	identity, err := currentIdentity(ctx)
	if err != nil {
		return err
	}

	id, err := parseIDParam(ctx)
	if err != nil {
		return err
	}

	deleted, err := c.accessKeys.Delete(ctx.Request().Context(), id, identity.UserID)
	if err != nil {
		return err
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "access key not found")
	}
	return ctx.NoContent(http.StatusNoContent)
}
