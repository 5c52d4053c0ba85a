package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medcare-gateway/internal/config"
	"medcare-gateway/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, dispatchers []*Dispatcher, health *HealthHandler) {
	for _, d := range dispatchers {
		e.Any(d.Endpoint(), d.Handle)
	}

	e.Any("/api/health", health.Health)
	e.Any("/api/favicon", health.Favicon)
	e.Any("/favicon.ico", health.Favicon)
}

// RegisterMetrics exposes the Prometheus registry when metrics are enabled.
func RegisterMetrics(e *echo.Echo, cfg *config.Config, m *metrics.Metrics) {
	if !cfg.Metrics.Enabled {
		return
	}
	e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		Registry: m.Registry,
	})))
}
