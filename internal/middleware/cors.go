package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AllowAllCORS sets Access-Control-Allow-Origin: * on every response.
// Used by the image and text relays, which serve anyone.
func AllowAllCORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set(echo.HeaderAccessControlAllowOrigin, "*")
			return next(c)
		}
	}
}

// EchoOriginCORSConfig configures EchoOriginCORS.
type EchoOriginCORSConfig struct {
	AllowMethods []string
	AllowHeaders []string
}

// EchoOriginCORS reflects the caller's Origin, or "*" when there is none, and
// answers preflight OPTIONS requests with 204 and no body.
func EchoOriginCORS(cfg EchoOriginCORSConfig) echo.MiddlewareFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" {
				origin = "*"
			}
			h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			h.Add(echo.HeaderVary, echo.HeaderOrigin)
			h.Set(echo.HeaderAccessControlAllowMethods, methods)
			h.Set(echo.HeaderAccessControlAllowHeaders, headers)

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}
