package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/service"
)

// RelayHandler serves the image and text relays.
type RelayHandler struct {
	service *service.RelayService
	writer  *Writer
	logger  *slog.Logger
}

// NewRelayHandler creates a RelayHandler.
func NewRelayHandler(svc *service.RelayService, w *Writer, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{
		service: svc,
		writer:  w,
		logger:  logger.With("component", "relay_handler"),
	}
}

// Image fetches image_url and relays it raw, transcoded or wrapped in HTML.
func (h *RelayHandler) Image(c echo.Context) error {
	req := c.Request()
	out, err := h.service.RelayImage(req.Context(), &service.ImageRequest{
		URL:       c.QueryParam("image_url"),
		Format:    c.QueryParam("format"),
		UserAgent: req.UserAgent(),
	})
	if err != nil {
		return writeError(c, h.logger, imageFailures, err)
	}
	return h.writer.Relay(c, out)
}

// Text fetches url and relays the body as plain text.
func (h *RelayHandler) Text(c echo.Context) error {
	out, err := h.service.RelayText(c.Request().Context(), c.QueryParam("url"))
	if err != nil {
		return writeError(c, h.logger, textFailures, err)
	}
	return h.writer.Relay(c, out)
}
