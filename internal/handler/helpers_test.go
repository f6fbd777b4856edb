package handler

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/client"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/metrics"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/service"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/transform"
)

const (
	desktopUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0 Safari/537.36"
	iPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148"
	routeKey  = "route-secret"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(geminiURL string) *config.Config {
	return &config.Config{
		Fetch: config.FetchConfig{
			TimeoutSeconds:     10,
			IdleConnections:    10,
			UserAgent:          config.DefaultUserAgent,
			Referer:            config.DefaultReferer,
			DefaultContentType: config.DefaultContentType,
		},
		Transform: config.TransformConfig{MaxWidth: 800, JPEGQuality: 70},
		Relay:     config.RelayConfig{MaxAgeSeconds: 86400},
		AI: config.AIConfig{
			RouteKey:       routeKey,
			GeminiAPIKey:   "gemini-test-key",
			Model:          config.DefaultGeminiModel,
			BaseURL:        geminiURL,
			TimeoutSeconds: 10,
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// newTestServer builds the full handler graph the way main wires it.
func newTestServer(t *testing.T, cfg *config.Config) (*echo.Echo, *metrics.Metrics) {
	t.Helper()
	logger := discardLogger()
	m := metrics.New()

	relaySvc := service.NewRelayService(
		client.NewFetcher(cfg, logger, m),
		transform.NewTransformer(cfg, logger, m),
		cfg, logger,
	)
	aiSvc := service.NewAIService(client.NewGeminiClient(cfg, logger, m), cfg, logger, m)

	e := echo.New()
	RegisterRoutes(e,
		NewRelayHandler(relaySvc, NewWriter(cfg, logger, m), logger),
		NewAIHandler(aiSvc, logger),
		NewHealthHandler(cfg, aiSvc, "test"),
		cfg, m,
	)
	return e, m
}

func doRequest(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func get(e *echo.Echo, target, userAgent string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return doRequest(e, req)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

// serveBytes returns an upstream that answers every request with body and contentType.
func serveBytes(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// serveStatus returns an upstream that always answers with code.
func serveStatus(t *testing.T, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(code), code)
	}))
	t.Cleanup(srv.Close)
	return srv
}

var errSentinel = errors.New("connection refused")

// httptestServerWithoutContentType answers with body and no Content-Type at all.
func httptestServerWithoutContentType(t *testing.T, body []byte) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// httptestCountingServer counts requests and answers 200.
func httptestCountingServer(t *testing.T, hits *atomic.Int32) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}
