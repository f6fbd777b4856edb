package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/client"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/handler"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/metrics"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/middleware"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/service"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/transform"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// The env file has to be in the environment before kong resolves env tags.
	if err := config.LoadEnvFile(config.EnvFileFromArgs(os.Args[1:])); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("image-proxy"),
		kong.Description("Image and page relay with mobile transcoding and a Gemini passthrough."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			metrics.New,
			newEcho,
			fx.Annotate(client.NewFetcher, fx.As(new(service.Fetcher))),
			fx.Annotate(client.NewGeminiClient, fx.As(new(service.Generator))),
			transform.NewTransformer,
			service.NewRelayService,
			service.NewAIService,
			handler.NewWriter,
			handler.NewRelayHandler,
			handler.NewAIHandler,
			handler.NewHealthHandler,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, logSettings, startServer),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = 30 * time.Second
	// No write timeout: large images and slow pages are streamed for as long
	// as the upstream keeps sending. fetch.timeout_seconds bounds the fetch.
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m))
	}
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders())

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimit(cfg.Server.RateLimit))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func logSettings(cfg *config.Config, ai *service.AIService, logger *slog.Logger) {
	logger.Info("relay settings",
		"streaming", cfg.Fetch.StreamingEnabled(),
		"mobile_transcode", cfg.Transform.TranscodeMobile(),
		"max_width", cfg.Transform.MaxWidth,
		"allowed_hosts", len(cfg.Fetch.AllowedHosts),
	)
	if !ai.Enabled() {
		logger.Warn("AI_ROUTE_KEY is not set; /ai will reject every request")
	}
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server", "addr", addr)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
