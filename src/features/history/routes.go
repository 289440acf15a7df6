package history

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the history feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Get("/ui/history/recent", handler.RenderRecent)
	app.Get("/history", handler.GetRecent)
}
