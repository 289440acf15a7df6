package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML file from the given path and returns a new ConfigManager.
// If the file doesn't exist, creates a default configuration.
func Load(path string) (*Manager, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		defaultCfg := createDefaultConfig()

		if err := saveDefaultConfig(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		slog.Info("Default configuration created successfully", "path", path)
		manager := NewManager(defaultCfg)
		manager.path = path
		manager.overrides = applyEnv(defaultCfg)
		if err := manager.EnsureDirectories(); err != nil {
			return nil, err
		}
		return manager, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := *createDefaultConfig()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}

	overrides := applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	manager := NewManager(&cfg)
	manager.path = path
	manager.overrides = overrides
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}

	return manager, nil
}

// Validate checks struct tags plus the rules that span several fields.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Mail.Auth == "oauth2" {
		o := cfg.Mail.OAuth2
		if o.ClientID == "" || o.RefreshToken == "" {
			return fmt.Errorf("config validation failed: mail.oauth2 requires client_id and refresh_token")
		}
	}
	return nil
}

// envSecrets maps each secret environment variable to the field it overrides.
var envSecrets = map[string]func(*Config) *string{
	"TELEGRAM_TOKEN":            func(c *Config) *string { return &c.Telegram.Token },
	"MAIL_PASSWORD":             func(c *Config) *string { return &c.Mail.Password },
	"MAIL_OAUTH2_CLIENT_SECRET": func(c *Config) *string { return &c.Mail.OAuth2.ClientSecret },
	"MAIL_OAUTH2_REFRESH_TOKEN": func(c *Config) *string { return &c.Mail.OAuth2.RefreshToken },
}

// envOverride remembers what the file held before an environment variable replaced it.
type envOverride struct {
	env  string
	file string
}

// applyEnv overrides secrets with environment variables when set and returns
// the overridden file values so they can be restored on save.
func applyEnv(cfg *Config) map[string]envOverride {
	overrides := make(map[string]envOverride)
	for name, field := range envSecrets {
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		target := field(cfg)
		overrides[name] = envOverride{env: value, file: *target}
		*target = value
	}
	return overrides
}

// withoutEnv returns a copy of cfg where secrets still holding their environment
// value are put back to what the file had.
func withoutEnv(cfg *Config, overrides map[string]envOverride) *Config {
	out := *cfg
	for name, o := range overrides {
		if target := envSecrets[name](&out); *target == o.env {
			*target = o.file
		}
	}
	return &out
}

// saveDefaultConfig saves the default configuration to the specified file path
func saveDefaultConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Default configuration saved", "path", path)
	return nil
}
