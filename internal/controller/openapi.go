package controller

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
)

//go:embed openapi/openapi.yaml
var openapiSpec []byte

// GetSwagger parses the embedded OpenAPI document. The request validator
// middleware enforces it against incoming /api traffic.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	swagger, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := swagger.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	return swagger, nil
}

// RegisterHandlers wires the API routes onto the given group so group
// middleware (request validation, auth) applies to all of them.
func RegisterHandlers(g *echo.Group, c *Controller) {
	g.GET("/ping", c.CheckServer)

	g.POST("/auth/login", c.Login)
	g.POST("/auth/refresh", c.Refresh)
	g.POST("/auth/logout", c.Logout)
	g.POST("/auth/logout-all", c.LogoutAll)
	g.GET("/auth/me", c.GetCurrentUser)

	g.POST("/links", c.CreateShortLink)
	g.GET("/links", c.ListShortLinks)
	g.GET("/links/:id", c.GetShortLink)
	g.PATCH("/links/:id", c.UpdateShortLink)
	g.DELETE("/links/:id", c.DeleteShortLink)

	g.POST("/keys", c.CreateAccessKey)
	g.GET("/keys", c.ListAccessKeys)
	g.GET("/keys/:id", c.GetAccessKey)
	g.PATCH("/keys/:id", c.UpdateAccessKey)
	g.DELETE("/keys/:id", c.DeleteAccessKey)

	g.GET("/stats/engagements", c.ListEngagements)
	g.GET("/stats/summary", c.GetEngagementSummary)
}

// RegisterRedirectHandlers wires the public redirect routes outside the
// validated /api surface.
func RegisterRedirectHandlers(e *echo.Echo, c *Controller) {
	e.GET("/r/:code", c.RedirectShortLink)
	e.HEAD("/r/:code", c.RedirectShortLink)
	e.GET("/r/:code/target", c.ResolveShortLinkTarget)
}
