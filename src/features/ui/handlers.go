package ui

import (
	"log/slog"

	"github.com/contre95/mailwatch/src/features/config"
	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the UI feature.
type Handler struct {
	configManager *config.Manager
}

// NewHandler creates a new handler for the UI feature.
func NewHandler(configManager *config.Manager) *Handler {
	return &Handler{
		configManager: configManager,
	}
}

// renderPage renders the shell page, which loads section via HTMX.
func (h *Handler) renderPage(c *fiber.Ctx, title, section string) error {
	return c.Render("main", fiber.Map{
		"Title":       title,
		"Section":     section,
		"MetricsPath": metricsPath(h.configManager.Get().Metrics),
	})
}

// RenderWatch renders the main page with the watch panel.
func (h *Handler) RenderWatch(c *fiber.Ctx) error {
	slog.Debug("RenderWatch handler called")
	return h.renderPage(c, "Watch", "watch/panel")
}

// RenderHistory renders the main page with the dispatch history.
func (h *Handler) RenderHistory(c *fiber.Ctx) error {
	slog.Debug("RenderHistory handler called")
	return h.renderPage(c, "History", "history/recent")
}

// RenderSettings renders the main page with the settings form.
func (h *Handler) RenderSettings(c *fiber.Ctx) error {
	slog.Debug("RenderSettings handler called")
	return h.renderPage(c, "Settings", "config/form")
}

func metricsPath(m config.Metrics) string {
	if !m.Enabled {
		return ""
	}
	if m.Path == "" {
		return "/metrics"
	}
	return m.Path
}
