package history

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the history feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the history feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RenderRecent renders the recent dispatches table.
func (h *Handler) RenderRecent(c *fiber.Ctx) error {
	slog.Debug("RenderRecent handler called")
	records, err := h.service.Recent(c.Context(), c.QueryInt("limit", DefaultLimit))
	if err != nil {
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": "Failed to load history: " + err.Error(),
		})
	}
	return c.Render("history/recent", fiber.Map{
		"Records": records,
	})
}

// GetRecent returns the recent dispatches as JSON.
func (h *Handler) GetRecent(c *fiber.Ctx) error {
	records, err := h.service.Recent(c.Context(), c.QueryInt("limit", DefaultLimit))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	totals, err := h.service.Totals(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"records": records,
		"totals":  totals,
	})
}
