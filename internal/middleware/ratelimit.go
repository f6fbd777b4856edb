package middleware

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
)

// rateLimitExpiry is how long an idle caller's bucket is kept.
const rateLimitExpiry = 3 * time.Minute

// RateLimit returns a per-IP token bucket limiter. Liveness probes are never limited.
// Rejections are plain text, like every other error body.
func RateLimit(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	burst := cfg.Burst
	if burst == 0 {
		burst = int(math.Ceil(cfg.RequestsPerSecond))
	}

	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RequestsPerSecond),
		Burst:     burst,
		ExpiresIn: rateLimitExpiry,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/healthz"
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.String(http.StatusForbidden, "unable to identify caller")
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.String(http.StatusTooManyRequests, "Too many requests")
		},
	})
}
