// Package config handles TOML configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/image-proxy/config.toml",
	"configs/config.toml",
}

// reservedRoutes are paths the metrics endpoint must not shadow.
var reservedRoutes = []string{"/html", "/ai", "/healthz", "/proxy/status"}

// Disguise header defaults. They imitate a desktop Chrome so that upstreams
// with naive hotlink checks serve the resource.
const (
	DefaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	DefaultReferer     = "https://comick.live"
	DefaultContentType = "image/jpeg"
	DefaultGeminiURL   = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config       string `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	EnvFile      string `kong:"help='Path to a .env file loaded before flags are resolved.',default='.env'"`
	Host         string `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port         int    `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	AIRouteKey   string `kong:"name='ai-route-key',help='Shared secret for the /ai route (overrides config).',env='AI_ROUTE_KEY'"`
	GeminiAPIKey string `kong:"name='gemini-api-key',help='Gemini API key (overrides config).',env='GEMINI_API_KEY'"`
	LogLevel     string `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Fetch     FetchConfig     `toml:"fetch"`
	Transform TransformConfig `toml:"transform"`
	Relay     RelayConfig     `toml:"relay"`
	AI        AIConfig        `toml:"ai"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string          `toml:"host"`
	Port         int             `toml:"port"` // 0 means "use default" (3000)
	BodyMaxBytes int64           `toml:"body_max_bytes"`
	RateLimit    RateLimitConfig `toml:"rate_limit"`
}

// RateLimitConfig controls per-IP request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"` // 0 means ceil(requests_per_second)
}

// FetchConfig controls outbound fetches and the disguise headers sent with them.
type FetchConfig struct {
	TimeoutSeconds     int      `toml:"timeout_seconds"`
	IdleConnections    int      `toml:"idle_connections"`
	UserAgent          string   `toml:"user_agent"`
	Referer            string   `toml:"referer"`
	DefaultContentType string   `toml:"default_content_type"`
	Streaming          *bool    `toml:"streaming"` // nil means "use default" (true)
	AllowedHosts       []string `toml:"allowed_hosts"`
}

// TransformConfig controls image transcoding for mobile clients.
type TransformConfig struct {
	MaxWidth        int   `toml:"max_width"`
	JPEGQuality     int   `toml:"jpeg_quality"`
	MobileTranscode *bool `toml:"mobile_transcode"` // nil means "use default" (true)
}

// RelayConfig controls response headers written back to the caller.
type RelayConfig struct {
	MaxAgeSeconds int `toml:"max_age_seconds"`
}

// AIConfig holds the generative-text passthrough settings.
type AIConfig struct {
	RouteKey       string `toml:"route_key"`
	GeminiAPIKey   string `toml:"gemini_api_key"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Load reads the TOML config file, if any, and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/image-proxy/config.toml then configs/config.toml. Running without a
// config file is allowed; defaults and CLI/env values are used instead.
func Load(cli *CLI) (*Config, error) {
	var cfg Config

	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.filePath = path
	}

	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.AIRouteKey != "" {
		c.AI.RouteKey = cli.AIRouteKey
	}
	if cli.GeminiAPIKey != "" {
		c.AI.GeminiAPIKey = cli.GeminiAPIKey
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0-65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("server.rate_limit.requests_per_second must be > 0 when rate limiting is enabled; got %v", c.Server.RateLimit.RequestsPerSecond)
	}
	if c.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("server.rate_limit.burst must be >= 0; got %d", c.Server.RateLimit.Burst)
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return fmt.Errorf("fetch.timeout_seconds must be non-negative; got %d", c.Fetch.TimeoutSeconds)
	}
	if c.Fetch.IdleConnections < 0 {
		return fmt.Errorf("fetch.idle_connections must be non-negative; got %d", c.Fetch.IdleConnections)
	}
	if c.Transform.MaxWidth < 0 {
		return fmt.Errorf("transform.max_width must be non-negative; got %d", c.Transform.MaxWidth)
	}
	if c.Transform.JPEGQuality < 0 || c.Transform.JPEGQuality > 100 {
		return fmt.Errorf("transform.jpeg_quality must be 1-100; got %d", c.Transform.JPEGQuality)
	}
	if c.Relay.MaxAgeSeconds < 0 {
		return fmt.Errorf("relay.max_age_seconds must be non-negative; got %d", c.Relay.MaxAgeSeconds)
	}
	if c.AI.TimeoutSeconds < 0 {
		return fmt.Errorf("ai.timeout_seconds must be non-negative; got %d", c.AI.TimeoutSeconds)
	}

	if c.Fetch.Referer != "" {
		if _, err := url.ParseRequestURI(c.Fetch.Referer); err != nil {
			return fmt.Errorf("fetch.referer is not a valid URL: %w", err)
		}
	}
	for _, h := range c.Fetch.AllowedHosts {
		if h == "" || strings.ContainsAny(h, "/:") {
			return fmt.Errorf("fetch.allowed_hosts entries must be bare host names; got %q", h)
		}
	}

	// AI upstream must be a real HTTPS URL when overridden.
	if c.AI.BaseURL != "" {
		u, err := url.Parse(c.AI.BaseURL)
		if err != nil {
			return fmt.Errorf("ai.base_url is not a valid URL: %w", err)
		}
		if u.Scheme != "https" {
			return fmt.Errorf("ai.base_url must use HTTPS; got %q", c.AI.BaseURL)
		}
	}
	if c.AI.RouteKey == "YOUR_ROUTE_KEY_HERE" || c.AI.GeminiAPIKey == "YOUR_API_KEY_HERE" {
		return errors.New("ai keys contain placeholder values; set real keys or leave them empty")
	}

	// Log fields.
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		if p == "/" {
			return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, "/")
		}
		for _, reserved := range reservedRoutes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields zero means "unset" because TOML cannot distinguish
// between an explicit 0 and an omitted key.
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 1024 * 1024 // 1 MB, only /ai accepts a body
	}
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = 120
	}
	if c.Fetch.IdleConnections == 0 {
		c.Fetch.IdleConnections = 100
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}
	if c.Fetch.Referer == "" {
		c.Fetch.Referer = DefaultReferer
	}
	if c.Fetch.DefaultContentType == "" {
		c.Fetch.DefaultContentType = DefaultContentType
	}
	if c.Fetch.Streaming == nil {
		c.Fetch.Streaming = boolPtr(true)
	}
	if c.Transform.MaxWidth == 0 {
		c.Transform.MaxWidth = 800
	}
	if c.Transform.JPEGQuality == 0 {
		c.Transform.JPEGQuality = 70
	}
	if c.Transform.MobileTranscode == nil {
		c.Transform.MobileTranscode = boolPtr(true)
	}
	if c.Relay.MaxAgeSeconds == 0 {
		c.Relay.MaxAgeSeconds = 86400
	}
	if c.AI.Model == "" {
		c.AI.Model = DefaultGeminiModel
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = DefaultGeminiURL
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 60
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// StreamingEnabled reports whether upstream bodies may be relayed without buffering.
func (c *FetchConfig) StreamingEnabled() bool {
	return c.Streaming == nil || *c.Streaming
}

// TranscodeMobile reports whether mobile clients get transcoded images by default.
func (c *TransformConfig) TranscodeMobile() bool {
	return c.MobileTranscode == nil || *c.MobileTranscode
}

func boolPtr(b bool) *bool { return &b }

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is readable by group or others.
// The file may hold the route key and the Gemini key.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Warn("config file is readable by group/others; consider chmod 600",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}
