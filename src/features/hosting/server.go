package hosting

import (
	"fmt"
	"log/slog"

	"github.com/contre95/mailwatch/src/features/config"
	"github.com/contre95/mailwatch/src/features/history"
	"github.com/contre95/mailwatch/src/features/metrics"
	"github.com/contre95/mailwatch/src/features/ui"
	"github.com/contre95/mailwatch/src/features/watching"
	"github.com/contre95/mailwatch/src/views"
	"github.com/gofiber/fiber/v2"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server. collector may be nil when metrics are disabled.
func NewServer(cfg *config.Manager, watchService *watching.Service, historyService *history.Service, collector *metrics.Collector) *Server {
	engine := views.NewEngine()
	engine.Debug(cfg.Get().Logger.Level == "debug")
	engine.AddFunc("isDebug", func() bool {
		return cfg.Get().Logger.HTMXDebug
	})

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
		AppName:               "Mailwatch",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	metricsPath := ""
	if collector != nil {
		metricsPath = cfg.Get().Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
	}
	app.Use(RequestLogger(metricsPath, func() bool { return cfg.Get().Logger.HTMXDebug }))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	ui.RegisterRoutes(app, ui.NewHandler(cfg))
	config.RegisterRoutes(app, cfg)
	watching.RegisterRoutes(app, watchService)
	history.RegisterRoutes(app, historyService)
	if collector != nil {
		metrics.RegisterRoutes(app, metricsPath, collector)
	}

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	slog.Info("Starting web panel", "port", s.port)
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
