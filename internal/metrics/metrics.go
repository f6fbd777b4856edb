// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for request latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	TransformsTotal *prometheus.CounterVec
	RelayedBytes    *prometheus.CounterVec
	AIRequestsTotal *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_proxy_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "image_proxy_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "image_proxy_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "image_proxy_upstream_request_duration_seconds",
			Help:    "Upstream call latency in seconds, until response headers arrive.",
			Buckets: defaultBuckets,
		}, []string{"upstream"}),

		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_proxy_upstream_responses_total",
			Help: "Total upstream responses by upstream and status code.",
		}, []string{"upstream", "status_code"}),

		TransformsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_proxy_transforms_total",
			Help: "Relayed payloads by output mode and result.",
		}, []string{"mode", "result"}),

		RelayedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_proxy_relayed_bytes_total",
			Help: "Bytes written back to callers by output mode.",
		}, []string{"mode"}),

		AIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_proxy_ai_requests_total",
			Help: "Generative-text passthrough requests by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.TransformsTotal,
		m.RelayedBytes,
		m.AIRequestsTotal,
	)

	return m
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// knownRoutes lists the allowed route label values (bounded cardinality).
var knownRoutes = []string{"/html", "/ai", "/healthz", "/proxy/status", "/metrics"}

// NormalizePath returns a bounded route label for Prometheus metrics.
// The image relay lives at "/" and is reported as such; query strings are ignored.
func NormalizePath(path string) string {
	if path == "/" || path == "" || strings.HasPrefix(path, "/?") {
		return "/"
	}
	for _, route := range knownRoutes {
		if path == route || strings.HasPrefix(path, route+"/") || strings.HasPrefix(path, route+"?") {
			return route
		}
	}
	return "other"
}
