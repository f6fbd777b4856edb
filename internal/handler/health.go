package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/service"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	ai      *service.AIService
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, ai *service.AIService, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, ai: ai, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type statusResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	Streaming       bool   `json:"streaming"`
	MobileTranscode bool   `json:"mobile_transcode"`
	MaxWidth        int    `json:"max_width"`
	AIEnabled       bool   `json:"ai_enabled"`
}

// Status reports the relay's effective settings. Secrets are never included.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:          "ok",
		Version:         string(h.version),
		Streaming:       h.cfg.Fetch.StreamingEnabled(),
		MobileTranscode: h.cfg.Transform.TranscodeMobile(),
		MaxWidth:        h.cfg.Transform.MaxWidth,
		AIEnabled:       h.ai.Enabled(),
	})
}
