package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/client"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/service"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/transform"
)

// secretParamPattern matches credential-looking query values in URLs that end up in error text.
var secretParamPattern = regexp.MustCompile(`(?i)((?:api_?key|key|token|sig|signature)=)[^&\s"]+`)

// failureText holds the per-route wording of caller-facing errors.
type failureText struct {
	missing string // body for a missing target parameter
	prefix  string // prefix for 500 bodies
}

var (
	imageFailures = failureText{missing: "image_url parameter is required", prefix: "Failed to fetch image: "}
	textFailures  = failureText{missing: "url parameter is required", prefix: "Failed to fetch URL: "}
	aiFailures    = failureText{prefix: "AI request failed: "}
)

// writeError maps err to a status and a plain-text body and logs it.
func writeError(c echo.Context, logger *slog.Logger, ft failureText, err error) error {
	status, body := classify(ft, err)

	attrs := []any{
		"err", sanitizeError(err),
		"path", c.Request().URL.Path,
		"status", status,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("relay failed", attrs...)
	} else {
		logger.Warn("request rejected", attrs...)
	}

	return c.String(status, body)
}

func classify(ft failureText, err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingURL) && ft.missing != "":
		return http.StatusBadRequest, ft.missing
	case errors.Is(err, service.ErrMissingURL),
		errors.Is(err, service.ErrUnsupportedScheme),
		errors.Is(err, service.ErrMissingPrompt),
		errors.Is(err, transform.ErrUnknownFormat):
		return http.StatusBadRequest, sanitizeError(err)
	case errors.Is(err, service.ErrHostNotAllowed),
		errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden, sanitizeError(err)
	}
	return http.StatusInternalServerError, ft.prefix + failureDetail(err)
}

// failureDetail describes a 500-class failure. Upstream status lines are kept
// verbatim so callers can see the code.
func failureDetail(err error) string {
	var upErr *client.UpstreamError
	if errors.As(err, &upErr) {
		return sanitizeError(upErr)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "upstream request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request canceled"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "upstream host unreachable: " + dnsErr.Name
	}
	return sanitizeError(err)
}

// sanitizeError redacts credentials from error messages that may contain target URLs.
func sanitizeError(err error) string {
	return secretParamPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]")
}
