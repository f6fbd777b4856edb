package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAllowAllCORS(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusInternalServerError, "Failed to fetch image: boom")
	}, AllowAllCORS())

	for _, origin := range []string{"", "https://reader.example"} {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		if origin != "" {
			req.Header.Set(echo.HeaderOrigin, origin)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if v := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); v != "*" {
			t.Errorf("origin %q: Access-Control-Allow-Origin = %q, want %q", origin, v, "*")
		}
	}
}

func newEchoOriginServer() *echo.Echo {
	e := echo.New()
	mw := EchoOriginCORS(EchoOriginCORSConfig{
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "api_key"},
	})
	handler := func(c echo.Context) error { return c.String(http.StatusOK, "done") }
	e.POST("/ai", handler, mw)
	e.OPTIONS("/ai", handler, mw)
	return e
}

func TestEchoOriginCORS_ReflectsOrigin(t *testing.T) {
	e := newEchoOriginServer()

	req := httptest.NewRequest(http.MethodPost, "/ai", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://app.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); v != "https://app.example" {
		t.Errorf("Access-Control-Allow-Origin = %q, want reflected origin", v)
	}
	if v := rec.Header().Get(echo.HeaderVary); v != echo.HeaderOrigin {
		t.Errorf("Vary = %q, want %q", v, echo.HeaderOrigin)
	}
	if v := rec.Header().Get(echo.HeaderAccessControlAllowMethods); v != "POST, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", v)
	}
	if v := rec.Header().Get(echo.HeaderAccessControlAllowHeaders); v != "Content-Type, api_key" {
		t.Errorf("Access-Control-Allow-Headers = %q", v)
	}
}

func TestEchoOriginCORS_WildcardWithoutOrigin(t *testing.T) {
	e := newEchoOriginServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ai", http.NoBody))

	if v := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); v != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", v, "*")
	}
}

func TestEchoOriginCORS_Preflight(t *testing.T) {
	e := newEchoOriginServer()

	req := httptest.NewRequest(http.MethodOptions, "/ai", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://app.example")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
	if v := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); v != "https://app.example" {
		t.Errorf("Access-Control-Allow-Origin = %q, want reflected origin", v)
	}
}
