package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/metrics"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/model"
)

// Writer copies an Output to the caller.
type Writer struct {
	cacheControl string
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// NewWriter creates a Writer. The metrics parameter is optional.
func NewWriter(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Writer {
	return &Writer{
		cacheControl: fmt.Sprintf("public, max-age=%d", cfg.Relay.MaxAgeSeconds),
		logger:       logger.With("component", "relay_writer"),
		metrics:      m,
	}
}

// Relay writes out with a 200 status. Content-Type always comes from out.
// Cache-Control is only set for image bytes. A streamed Output is closed here.
func (w *Writer) Relay(c echo.Context, out *model.Output) error {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, out.ContentType)
	if out.Image {
		h.Set("Cache-Control", w.cacheControl)
	}

	if out.Stream == nil {
		w.count(out.Mode, len(out.Data))
		return c.Blob(http.StatusOK, out.ContentType, out.Data)
	}

	defer func() { _ = out.Stream.Close() }()
	w.stream(c, out)
	return nil
}

// stream flushes each chunk as it arrives. Once the status line is out, a
// failure can only truncate the body, so it is logged rather than returned.
func (w *Writer) stream(c echo.Context, out *model.Output) {
	res := c.Response()
	res.WriteHeader(http.StatusOK)

	written := 0
	defer func() { w.count(out.Mode, written) }()

	for {
		chunk, err := out.Stream.NextChunk()
		if len(chunk) > 0 {
			if _, werr := res.Write(chunk); werr != nil {
				w.logger.Warn("caller went away mid-stream",
					"err", werr,
					"path", c.Request().URL.Path,
					"bytes", written,
				)
				return
			}
			written += len(chunk)
			res.Flush()
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			w.logger.Error("streaming upstream body",
				"err", sanitizeError(err),
				"path", c.Request().URL.Path,
				"bytes", written,
			)
			return
		}
	}
}

func (w *Writer) count(mode model.OutputMode, n int) {
	if w.metrics != nil && n > 0 {
		w.metrics.RelayedBytes.WithLabelValues(mode.String()).Add(float64(n))
	}
}
