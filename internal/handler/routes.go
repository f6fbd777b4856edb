package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/metrics"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, relay *RelayHandler, ai *AIHandler, health *HealthHandler, cfg *config.Config, m *metrics.Metrics) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	open := middleware.AllowAllCORS()
	e.GET("/", relay.Image, open)
	e.GET("/html", relay.Text, open)

	aiCORS := middleware.EchoOriginCORS(middleware.EchoOriginCORSConfig{
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, headerRouteKey, headerRouteKeyAlt},
	})
	e.POST("/ai", ai.Complete, aiCORS)
	e.OPTIONS("/ai", ai.Preflight, aiCORS)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
