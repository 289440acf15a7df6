package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes exposes the collector registry in the Prometheus text format.
func RegisterRoutes(app *fiber.App, path string, collector *Collector) {
	if path == "" {
		path = "/metrics"
	}
	handler := promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{})
	app.Get(path, adaptor.HTTPHandler(handler))
}
