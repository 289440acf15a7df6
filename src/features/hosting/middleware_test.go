package hosting

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestAreaOf(t *testing.T) {
	tests := map[string]string{
		"/watch/start":       "watch",
		"/ui/watch/panel":    "watch",
		"/history":           "history",
		"/ui/history/recent": "history",
		"/ui/settings":       "config",
		"/config/form":       "config",
		"/metrics":           "metrics",
		"/health":            "health",
		"/ui":                "ui",
	}
	for path, want := range tests {
		if got := areaOf(path, "/metrics"); got != want {
			t.Errorf("areaOf(%q) = %q, want %q", path, got, want)
		}
	}
	if got := areaOf("/metrics", ""); got != "ui" {
		t.Errorf("expected /metrics to be plain ui without a collector, got %q", got)
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func TestRequestLogger(t *testing.T) {
	logs := captureLogs(t)
	detail := false
	app := fiber.New()
	app.Use(RequestLogger("/metrics", func() bool { return detail }))
	app.Get("/watch/status", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/watch/start", func(c *fiber.Ctx) error { return c.SendString("ok") })

	if _, err := app.Test(httptest.NewRequest("GET", "/watch/status", nil)); err != nil {
		t.Fatal(err)
	}
	if logs.Len() != 0 {
		t.Errorf("expected polled status to stay quiet, got %q", logs.String())
	}

	if _, err := app.Test(httptest.NewRequest("GET", "/history/missing", nil)); err != nil {
		t.Fatal(err)
	}
	if out := logs.String(); !strings.Contains(out, "level=WARN") || !strings.Contains(out, "area=history") || !strings.Contains(out, "status=404") {
		t.Errorf("expected a warning for the missing route, got %q", out)
	}

	logs.Reset()
	detail = true
	req := httptest.NewRequest("POST", "/watch/start", nil)
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", "toast")
	if _, err := app.Test(req); err != nil {
		t.Fatal(err)
	}
	if out := logs.String(); !strings.Contains(out, "area=watch") || !strings.Contains(out, "hx_target=toast") {
		t.Errorf("expected HTMX detail on the start request, got %q", out)
	}
}
