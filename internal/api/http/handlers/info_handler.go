package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	apperrors "github.com/spec-kit/auth-gateway/pkg/util"
)

// InfoHandler serves service discovery documents.
type InfoHandler struct {
	serviceName string
	version     string
	environment string
}

func NewInfoHandler(serviceName, version, environment string) *InfoHandler {
	return &InfoHandler{serviceName: serviceName, version: version, environment: environment}
}

// Root handles GET /.
func (h *InfoHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":     h.serviceName,
		"version":     h.version,
		"description": "Authentication gateway issuing signed access tokens",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.environment,
	})
}

// API handles GET /api.
func (h *InfoHandler) API(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   h.serviceName,
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"endpoints": fiber.Map{
			"health":  "/health",
			"auth":    "/api/auth",
			"metrics": "/metrics",
		},
	})
}

// NotFound renders unmatched routes as the standard error body.
func NotFound(c *fiber.Ctx) error {
	return apperrors.NewNotFound("route", map[string]any{
		"path":      utils.CopyString(c.Path()),
		"method":    utils.CopyString(c.Method()),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
