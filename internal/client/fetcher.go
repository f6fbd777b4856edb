// Package client provides the outbound HTTP clients: the disguised resource
// fetcher and the Gemini generative-text client.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/wangchukkarma504/image-proxy-viewer/internal/config"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/metrics"
	"github.com/wangchukkarma504/image-proxy-viewer/internal/model"
)

// Accept values for the two fetch routes.
const (
	AcceptImage = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
	AcceptText  = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

const acceptLanguage = "en-US,en;q=0.9"

// UpstreamError is returned when the upstream answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Status     string // verbatim status line, e.g. "404 Not Found"
	Detail     string // optional upstream-provided message
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("upstream responded %s: %s", e.Status, e.Detail)
	}
	return "upstream responded " + e.Status
}

// newUpstreamError builds an UpstreamError, filling a missing status line from the code.
func newUpstreamError(resp *http.Response) *UpstreamError {
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &UpstreamError{StatusCode: resp.StatusCode, Status: status}
}

// Fetcher retrieves arbitrary URLs while presenting itself as a desktop browser.
type Fetcher struct {
	httpClient         *http.Client
	logger             *slog.Logger
	metrics            *metrics.Metrics
	headers            http.Header
	defaultContentType string
	streaming          bool
}

// NewFetcher creates a Fetcher with connection pooling and timeouts.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
// Whether bodies are streamed or buffered is fixed here, from fetch.streaming.
func NewFetcher(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		httpClient:         newHTTPClient(cfg.Fetch.IdleConnections, cfg.Fetch.TimeoutSeconds),
		logger:             logger.With("component", "fetcher"),
		metrics:            m,
		headers:            DisguiseHeaders(&cfg.Fetch),
		defaultContentType: cfg.Fetch.DefaultContentType,
		streaming:          cfg.Fetch.StreamingEnabled(),
	}
}

func newHTTPClient(idle, timeoutSeconds int) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        idle,
		MaxIdleConnsPerHost: idle,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(timeoutSeconds) * time.Second,
	}
}

// DisguiseHeaders returns the fixed header set attached to every outbound fetch.
func DisguiseHeaders(cfg *config.FetchConfig) http.Header {
	h := make(http.Header)
	h.Set("User-Agent", cfg.UserAgent)
	h.Set("Accept", AcceptImage)
	h.Set("Accept-Language", acceptLanguage)
	h.Set("Referer", cfg.Referer)
	return h
}

// Streaming reports whether this fetcher hands out chunked payloads.
func (f *Fetcher) Streaming() bool {
	return f.streaming
}

// Fetch performs one GET against fr.URL. The request is bound to ctx, so a
// caller that goes away cancels the upstream transfer. On success the caller
// owns result.Body and must close it.
func (f *Fetcher) Fetch(ctx context.Context, fr *model.FetchRequest) (*model.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fr.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = f.headers.Clone()
	if fr.Accept != "" {
		req.Header.Set("Accept", fr.Accept)
	}

	f.logger.Debug("upstream request", "host", req.URL.Host)

	start := time.Now()
	resp, err := f.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via FetchResult
	duration := time.Since(start).Seconds()

	if f.metrics != nil {
		f.metrics.UpstreamDuration.WithLabelValues("fetch").Observe(duration)
	}
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	if f.metrics != nil {
		f.metrics.UpstreamResponses.WithLabelValues("fetch", strconv.Itoa(resp.StatusCode)).Inc()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, newUpstreamError(resp)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = f.defaultContentType
	}

	result := &model.FetchResult{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		ContentType: contentType,
		Header:      resp.Header,
	}

	if f.streaming {
		result.Body = model.NewStreamPayload(resp.Body)
		return result, nil
	}

	body, err := model.NewBufferedPayload(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream body: %w", err)
	}
	result.Body = body
	return result, nil
}
