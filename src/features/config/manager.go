package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager holds the application configuration and provides thread-safe access to it.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	path      string
	overrides map[string]envOverride
}

// NewManager creates a new ConfigManager.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Path returns the file the configuration was loaded from, if any.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Update updates the configuration.
func (m *Manager) Update(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldConfig := m.config
	m.config = config

	if oldConfig != nil {
		slog.Debug("Configuration updated",
			"directory_changed", oldConfig.Watch.Directory != config.Watch.Directory,
			"recipient_changed", oldConfig.Watch.Recipient != config.Watch.Recipient,
			"interval_changed", oldConfig.Watch.Interval != config.Watch.Interval,
			"mail_host_changed", oldConfig.Mail.Host != config.Mail.Host,
			"telegram_enabled_changed", oldConfig.Telegram.Enabled != config.Telegram.Enabled,
		)
	}
}

// UpdateWatch replaces the watch section and keeps everything else.
func (m *Manager) UpdateWatch(watch Watch) {
	m.mu.RLock()
	next := *m.config
	m.mu.RUnlock()
	next.Watch = watch
	m.Update(&next)
}

// Save writes the current configuration to the specified file path.
// Secrets that came from the environment are not written.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		slog.Error("failed to create config file", "path", path, "error", err)
		return err
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(withoutEnv(m.config, m.overrides)); err != nil {
		slog.Error("failed to encode config", "path", path, "error", err)
		return err
	}

	slog.Info("Configuration saved successfully", "path", path)
	return nil
}

// EnsureDirectories creates the directory holding the history database if it doesn't exist.
func (m *Manager) EnsureDirectories() error {
	m.mu.RLock()
	cfg := m.config
	m.mu.RUnlock()

	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
	}

	slog.Info("Required directories created/verified", "database", dbDir)
	return nil
}

// redactedCfg gets a redacted copy of the Config
func (m *Manager) redactedCfg() Config {
	var cfgCpy = *m.config
	cfgCpy.Telegram.Token = redact(cfgCpy.Telegram.Token)
	cfgCpy.Mail.Password = redact(cfgCpy.Mail.Password)
	cfgCpy.Mail.OAuth2.ClientSecret = redact(cfgCpy.Mail.OAuth2.ClientSecret)
	cfgCpy.Mail.OAuth2.RefreshToken = redact(cfgCpy.Mail.OAuth2.RefreshToken)
	return cfgCpy
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "<redacted>"
}

// GetJSON returns the current configuration as a JSON string.
func (m *Manager) GetJSON() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jsonBytes, err := json.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

func (m *Manager) GetYAML() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	yamlBytes, err := yaml.Marshal(m.redactedCfg())
	if err != nil {
		slog.Error("failed to marshal config to YAML", "error", err)
		return err.Error()
	}
	return string(yamlBytes)
}
