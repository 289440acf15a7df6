package config

// Config holds the application configuration.
type Config struct {
	Watch    Watch    `yaml:"watch"`
	Mail     Mail     `yaml:"mail" validate:"required"`
	Telegram Telegram `yaml:"telegram"`
	Logger   Logger   `yaml:"logger"`
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Metrics  Metrics  `yaml:"metrics"`
}

// Watch holds the settings of the directory watch session. The panel and the bot
// may override them when starting a session; these are the defaults they start from.
type Watch struct {
	Directory string   `yaml:"directory"`
	Recipient string   `yaml:"recipient" validate:"omitempty,email"`
	Sender    string   `yaml:"sender" validate:"omitempty,email"`
	Interval  string   `yaml:"interval" validate:"required"`
	Suffixes  []string `yaml:"suffixes" validate:"required,min=1,dive,required"`
	AutoStart bool     `yaml:"auto_start"`
	Activity  bool     `yaml:"activity"` // fsnotify hint shown on the panel
}

// Mail holds the SMTP submission settings used by the mailer.
type Mail struct {
	Host           string `yaml:"host" validate:"required,hostname|ip"`
	Port           int    `yaml:"port" validate:"required,min=1,max=65535"`
	Auth           string `yaml:"auth" validate:"required,oneof=password oauth2 none"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	OAuth2         OAuth2 `yaml:"oauth2"`
	AsciiFilenames bool   `yaml:"ascii_filenames"`
	TimeoutSecs    int    `yaml:"timeout_secs" validate:"min=0"`
}

// OAuth2 holds the refresh-token credentials used for XOAUTH2 submission.
type OAuth2 struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RefreshToken string   `yaml:"refresh_token"`
	TokenURL     string   `yaml:"token_url" validate:"omitempty,url"`
	Scopes       []string `yaml:"scopes"`
}

// Database holds the configuration for the dispatch history database
type Database struct {
	Path string `yaml:"path" validate:"required"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled   bool   `yaml:"enabled"`
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	HTMXDebug bool   `yaml:"htmx_debug"`
}

type Telegram struct {
	Enabled      bool     `yaml:"enabled"`
	Token        string   `yaml:"token"`
	AllowedUsers []string `yaml:"allowedUsers"`
	BotHandle    string   `yaml:"bot_handle"`
}

type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
