package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/model"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/service"
)

// Header names that may carry the route key, in order of precedence.
const (
	headerRouteKey    = "api_key"
	headerRouteKeyAlt = "X-Api-Key"
)

// AIHandler serves the generative-text passthrough.
type AIHandler struct {
	service *service.AIService
	logger  *slog.Logger
}

// NewAIHandler creates an AIHandler.
func NewAIHandler(svc *service.AIService, logger *slog.Logger) *AIHandler {
	return &AIHandler{
		service: svc,
		logger:  logger.With("component", "ai_handler"),
	}
}

// Complete forwards the prompt and returns the generated text as text/plain.
// An unreadable body is treated as empty so that authorization still runs first.
func (h *AIHandler) Complete(c echo.Context) error {
	var req model.PromptRequest
	if err := c.Bind(&req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusUnsupportedMediaType {
			_ = json.NewDecoder(c.Request().Body).Decode(&req)
		} else {
			h.logger.Debug("ignoring malformed body", "err", err)
		}
	}

	hdr := c.Request().Header
	key := hdr.Get(headerRouteKey)
	if key == "" {
		key = hdr.Get(headerRouteKeyAlt)
	}

	text, err := h.service.Complete(c.Request().Context(), &req, key)
	if err != nil {
		return writeError(c, h.logger, aiFailures, err)
	}
	return c.String(http.StatusOK, text)
}

// Preflight answers OPTIONS; the CORS middleware has already set the headers.
func (h *AIHandler) Preflight(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
