package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := serveBytes(t, "image/png", pngBytes(t, 4, 4))
	e, _ := newTestServer(t, testConfig(""))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /proxy/status", http.MethodGet, "/proxy/status", http.StatusOK},
		{"GET /", http.MethodGet, imageTarget(upstream.URL, ""), http.StatusOK},
		{"GET /html", http.MethodGet, "/html?url=" + upstream.URL, http.StatusOK},
		{"OPTIONS /ai", http.MethodOptions, "/ai", http.StatusNoContent},
		{"POST /ai without key", http.MethodPost, "/ai", http.StatusForbidden},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"GET /ai is not routed", http.MethodGet, "/ai", http.StatusMethodNotAllowed},
		{"GET /unknown returns 404", http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := doRequest(e, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_MetricsExposition(t *testing.T) {
	e, _ := newTestServer(t, testConfig(""))

	get(e, "/healthz", "")
	rec := get(e, "/metrics", "")

	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics output missing expected collectors:\n%s", rec.Body.String())
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	cfg := testConfig("")
	cfg.Metrics.Enabled = false
	e, _ := newTestServer(t, cfg)

	rec := get(e, "/metrics", "")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
