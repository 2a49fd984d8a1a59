package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool    Pinger
	storage Pinger
}

// NewHealthHandler creates a new HealthHandler for the catalog database and
// the discount storage.
func NewHealthHandler(pool, storage Pinger) *HealthHandler {
	return &HealthHandler{pool: pool, storage: storage}
}

// Check pings the database, then the discount storage.
// Returns 200 OK with {"status": "healthy"} when both are reachable.
// Returns 503 Service Unavailable with {"status": "unhealthy", "error": "..."} otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.pool.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "database connection failed",
		})
	}
	if err := h.storage.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: storage unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"error":  "storage connection failed",
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
	})
}
