package watching

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the watching feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	/// UI
	ui := app.Group("/ui")
	ui.Get("/watch/panel", handler.RenderPanel)
	ui.Get("/watch/status", handler.RenderStatus)

	// APP
	watch := app.Group("/watch")
	watch.Post("/start", handler.StartWatch)
	watch.Post("/pause", handler.PauseWatch)
	watch.Get("/status", handler.GetStatus)
	watch.Get("/intervals", handler.GetIntervals)
}
