package hosting

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// polledPaths are hit every second by the panel and only logged when they fail.
var polledPaths = []string{"/ui/watch/status", "/watch/status"}

func isPolled(path string) bool {
	for _, p := range polledPaths {
		if path == p {
			return true
		}
	}
	return false
}

// areaOf names the part of the app a request belongs to.
func areaOf(path, metricsPath string) string {
	if metricsPath != "" && path == metricsPath {
		return "metrics"
	}
	trimmed := strings.TrimPrefix(path, "/ui")
	switch {
	case strings.HasPrefix(trimmed, "/watch"):
		return "watch"
	case strings.HasPrefix(trimmed, "/history"):
		return "history"
	case strings.HasPrefix(trimmed, "/config"), strings.HasPrefix(trimmed, "/settings"):
		return "config"
	case path == "/health":
		return "health"
	default:
		return "ui"
	}
}

// RequestLogger logs one line per request. With htmxDetail the HTMX target and
// trigger are added, which is what the panel debug mode is for.
func RequestLogger(metricsPath string, htmxDetail func() bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		if status < 400 && isPolled(c.Path()) {
			return err
		}

		attrs := []any{
			"area", areaOf(c.Path(), metricsPath),
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"took", time.Since(start).String(),
		}
		if c.Get("HX-Request") == "true" {
			attrs = append(attrs, "htmx", true)
			if htmxDetail() {
				attrs = append(attrs, "hx_target", c.Get("HX-Target"), "hx_trigger", c.Get("HX-Trigger"))
			}
		}

		switch {
		case status >= 500:
			slog.Error("HTTP request", append(attrs, "error", err)...)
		case status >= 400:
			slog.Warn("HTTP request", attrs...)
		default:
			slog.Debug("HTTP request", attrs...)
		}
		return err
	}
}
