package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the config feature.
type Handler struct {
	configManager *Manager
}

// NewHandler creates a new handler for the config feature.
func NewHandler(configManager *Manager) *Handler {
	return &Handler{
		configManager: configManager,
	}
}

// UpdateSettings handles the form submission to update the mail, logger and telegram settings.
// The watch section is owned by the watch panel and server settings are never changed at runtime.
func (h *Handler) UpdateSettings(c *fiber.Ctx) error {
	slog.Info("Configuration update requested")

	currentConfig := h.configManager.Get()
	newConfig := *currentConfig

	newConfig.Mail.Host = c.FormValue("mail.host", currentConfig.Mail.Host)
	newConfig.Mail.Port = parseInt(c.FormValue("mail.port"), currentConfig.Mail.Port)
	newConfig.Mail.Auth = c.FormValue("mail.auth", currentConfig.Mail.Auth)
	newConfig.Mail.Username = c.FormValue("mail.username", currentConfig.Mail.Username)
	if pass := c.FormValue("mail.password"); pass != "" {
		newConfig.Mail.Password = pass
	}
	newConfig.Mail.AsciiFilenames = c.FormValue("mail.ascii_filenames") == "true"
	newConfig.Logger = Logger{
		Enabled:   c.FormValue("logger.enabled") == "true",
		Level:     c.FormValue("logger.level", currentConfig.Logger.Level),
		Format:    c.FormValue("logger.format", currentConfig.Logger.Format),
		HTMXDebug: c.FormValue("logger.htmx_debug") == "true",
	}
	newConfig.Telegram.Enabled = c.FormValue("telegram.enabled") == "true"
	newConfig.Telegram.AllowedUsers = parseStringSlice(c.FormValue("telegram.allowedUsers"))
	if token := c.FormValue("telegram.token"); token != "" {
		newConfig.Telegram.Token = token
	}

	if err := Validate(&newConfig); err != nil {
		slog.Warn("Rejected configuration update", "error", err)
		return c.Render("toast/toastErr", fiber.Map{
			"Msg": "Invalid configuration: " + err.Error(),
		})
	}

	h.configManager.Update(&newConfig)
	slog.Info("Configuration updated in memory")

	// Try to save to file (optional - may fail in containerized environments)
	if path := h.configManager.Path(); path != "" {
		if err := h.configManager.Save(path); err != nil {
			slog.Warn("failed to save config to file (this is normal in containerized environments)", "error", err)
		}
	}

	return c.Render("toast/toastOk", fiber.Map{
		"Msg": "Configuration updated successfully!",
	})
}

// Helper functions for parsing form values
func parseInt(s string, fallback int) int {
	var result int
	if s == "" {
		return fallback
	}
	if _, err := fmt.Sscanf(s, "%d", &result); err != nil {
		return fallback
	}
	return result
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for part := range strings.SplitSeq(s, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (h *Handler) GetConfigForm(c *fiber.Ctx) error {
	slog.Debug("GetConfigForm handler called")
	return c.Render("config/config_form", fiber.Map{
		"Config":     h.configManager.Get(),
		"AuthModes":  []string{"password", "oauth2", "none"},
		"LogLevels":  []string{"debug", "info", "warn", "error"},
		"LogFormats": []string{"text", "json", "logfmt"},
	})
}

// GetConfig returns the current configuration in the requested format.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	format := c.Query("fmt", "yaml")
	slog.Debug("GetConfig handler called", "format", format)

	switch format {
	case "yaml":
		c.Set("Content-Type", "text/yaml")
		return c.SendString(h.configManager.GetYAML())
	case "json":
		c.Set("Content-Type", "application/json")
		return c.SendString(h.configManager.GetJSON())
	default:
		return c.Status(fiber.StatusBadRequest).SendString("Invalid format. Use 'json' or 'yaml'")
	}
}

// DownloadDatabase serves the dispatch history database file for download.
func (h *Handler) DownloadDatabase(c *fiber.Ctx) error {
	slog.Debug("DownloadDatabase handler called")

	dbPath := h.configManager.Get().Database.Path
	if dbPath == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Database path not configured")
	}

	filename := filepath.Base(dbPath)
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Set("Content-Type", "application/octet-stream")
	return c.SendFile(dbPath)
}
