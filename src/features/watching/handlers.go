package watching

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the watching feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the watching feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RenderPanel renders the start/pause form prefilled with the last used settings.
func (h *Handler) RenderPanel(c *fiber.Ctx) error {
	slog.Debug("RenderPanel handler called")
	return c.Render("watch/panel", fiber.Map{
		"Request":   h.service.RequestFromConfig(),
		"Intervals": Intervals,
		"Status":    h.service.Status(),
	})
}

// RenderStatus renders the status line and progress bar. The panel polls it every second.
func (h *Handler) RenderStatus(c *fiber.Ctx) error {
	return c.Render("watch/status", fiber.Map{
		"Status": h.service.Status(),
	})
}

// StartWatch handles the start form submission.
func (h *Handler) StartWatch(c *fiber.Ctx) error {
	req := Request{
		Directory: strings.TrimSpace(c.FormValue("directory")),
		Recipient: strings.TrimSpace(c.FormValue("recipient")),
		Sender:    strings.TrimSpace(c.FormValue("sender")),
		Interval:  strings.TrimSpace(c.FormValue("interval")),
		Suffixes:  strings.Split(c.FormValue("suffixes"), ","),
	}
	slog.Info("Watch start requested", "directory", req.Directory, "interval", req.Interval)

	if err := h.service.Start(req); err != nil {
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": startErrorMessage(err),
		})
	}
	return c.Render("toast/toastOk", fiber.Map{
		"Msg": "Watching " + req.Directory,
	})
}

// PauseWatch handles the pause button.
func (h *Handler) PauseWatch(c *fiber.Ctx) error {
	slog.Info("Watch pause requested")
	if err := h.service.Pause(); err != nil {
		if errors.Is(err, ErrNotRunning) {
			return c.Render("toast/toastInfo", fiber.Map{
				"Msg": "Watch is not running",
			})
		}
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": "Failed to pause: " + err.Error(),
		})
	}
	return c.Render("toast/toastOk", fiber.Map{
		"Msg": "Watch paused",
	})
}

// GetStatus returns the current status as JSON.
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// GetIntervals returns the interval choices offered by the panel.
func (h *Handler) GetIntervals(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"intervals": Intervals,
		"default":   DefaultIntervalSecs,
	})
}

func startErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "Please fill in all fields"
	case errors.Is(err, ErrInvalidAddress):
		return "Recipient and sender must be valid email addresses"
	case errors.Is(err, ErrInvalidInterval):
		return "Invalid interval: " + err.Error()
	case errors.Is(err, ErrDirectoryUnavailable):
		return "Cannot read directory: " + err.Error()
	case errors.Is(err, ErrAlreadyRunning):
		return "Watch is already running, pause it first"
	default:
		return "Failed to start: " + err.Error()
	}
}
