package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/inferly/content-tags/database"
)

// HandlePing reports process liveness plus database reachability.
func HandlePing(store *database.GORMStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := "ok"
		if err := store.HealthCheck(); err != nil {
			status = "degraded"
		}
		return c.JSON(fiber.Map{"status": status})
	}
}
