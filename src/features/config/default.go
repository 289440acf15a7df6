package config

// DefaultTokenURL is Google's OAuth2 token endpoint, used when none is configured.
const DefaultTokenURL = "https://oauth2.googleapis.com/token"

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	return &Config{
		Watch: Watch{
			Directory: "",
			Recipient: "",
			Sender:    "",
			Interval:  "1min",
			Suffixes:  []string{".csv", ".txt"},
			AutoStart: false,
			Activity:  true,
		},
		Mail: Mail{
			Host:           "smtp.gmail.com",
			Port:           587,
			Auth:           "password",
			Username:       "",
			Password:       "", // Prefer MAIL_PASSWORD
			AsciiFilenames: false,
			TimeoutSecs:    30,
			OAuth2: OAuth2{
				TokenURL: DefaultTokenURL,
				Scopes:   []string{"https://mail.google.com/"},
			},
		},
		Telegram: Telegram{
			Enabled:      false,
			Token:        "",                                   // Can be obtained with https://t.me/BotFather
			AllowedUsers: []string{"<your_telegram_username>"}, // No @
			BotHandle:    "@<YourTelegramUserBot>",             // With @
		},
		Logger: Logger{
			Enabled:   true,
			Level:     "info",
			Format:    "text",
			HTMXDebug: false,
		},
		Server: Server{
			PrintRoutes: false,
			Port:        3636,
		},
		Database: Database{
			Path: "./data/history.db",
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
