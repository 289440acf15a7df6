package ui

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the UI feature.
func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/ui")
	})
	ui := app.Group("/ui")
	// Register the routes for pages.
	ui.Get("/", handler.RenderWatch)
	ui.Get("/watch", handler.RenderWatch)
	ui.Get("/history", handler.RenderHistory)
	ui.Get("/settings", handler.RenderSettings)
}
