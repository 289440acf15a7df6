package watching

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/contre95/mailwatch/src/views"
	"github.com/gofiber/fiber/v2"
)

func newTestApp(t *testing.T) (*fiber.App, *Service) {
	t.Helper()
	service, _, _ := newTestService(t)
	app := fiber.New(fiber.Config{Views: views.NewEngine()})
	RegisterRoutes(app, service)
	t.Cleanup(service.Close)
	return app, service
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) string {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request to %s failed: %v", path, err)
	}
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestHandlers_StartAndPause(t *testing.T) {
	app, service := newTestApp(t)
	dir := t.TempDir()

	body := postForm(t, app, "/watch/start", url.Values{
		"directory": {dir},
		"recipient": {"ops@example.com"},
		"sender":    {"robot@example.com"},
		"interval":  {"30s"},
		"suffixes":  {".csv,.txt"},
	})
	if !strings.Contains(body, "toast ok") || !strings.Contains(body, "Watching "+dir) {
		t.Fatalf("expected success toast, got %q", body)
	}
	if !service.Status().Running {
		t.Fatal("expected service to be running")
	}

	body = postForm(t, app, "/watch/pause", url.Values{})
	if !strings.Contains(body, "Watch paused") {
		t.Errorf("expected pause toast, got %q", body)
	}
	body = postForm(t, app, "/watch/pause", url.Values{})
	if !strings.Contains(body, "toast info") {
		t.Errorf("expected info toast when not running, got %q", body)
	}
}

func TestHandlers_StartMissingFields(t *testing.T) {
	app, _ := newTestApp(t)
	body := postForm(t, app, "/watch/start", url.Values{"directory": {t.TempDir()}})
	if !strings.Contains(body, "toast err") || !strings.Contains(body, "Please fill in all fields") {
		t.Errorf("expected missing fields toast, got %q", body)
	}
}

func TestHandlers_StatusJSON(t *testing.T) {
	app, _ := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/watch/status", nil))
	if err != nil {
		t.Fatal(err)
	}
	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("expected JSON status, got %v", err)
	}
	if status.State != "idle" || status.Board.Message != "Idle" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestHandlers_PanelRenders(t *testing.T) {
	app, _ := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest("GET", "/ui/watch/panel", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{`name="directory"`, `<option value="1min" selected>`, "watch-status"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected panel to contain %q", want)
		}
	}
}
