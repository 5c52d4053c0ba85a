// Package metrics provides Prometheus metrics for the gateway.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "medcare_gateway"

// Latency buckets in seconds. The upper buckets cover the 10s backend deadline.
var latencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Label sets shared by the inbound and backend collectors.
var (
	inboundLabels  = []string{"method", "status_code", "path_prefix"}
	backendLabels  = []string{"method", "status_code"}
	outcomeLabels  = []string{"endpoint", "outcome"}
	backendMethods = []string{"method"}
)

// Metrics holds the gateway's collectors and the registry they live in.
type Metrics struct {
	Registry *prometheus.Registry

	// Inbound traffic, labelled with bounded method and path values.
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Backend calls made by the proxy client.
	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	// ProxyOutcomes counts forwarded vs. fallback decisions per endpoint.
	ProxyOutcomes *prometheus.CounterVec
}

// New creates a Metrics instance on a private registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "Inbound HTTP requests.",
		}, inboundLabels),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: latencyBuckets,
		}, inboundLabels),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "Inbound HTTP requests currently being served.",
		}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "upstream", Name: "request_duration_seconds",
			Help:    "Backend call latency in seconds.",
			Buckets: latencyBuckets,
		}, backendMethods),
		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "upstream", Name: "responses_total",
			Help: "Backend responses by method and status code.",
		}, backendLabels),

		ProxyOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "proxy", Name: "outcomes_total",
			Help: "Proxy attempts by endpoint and outcome (forwarded or the fallback reason).",
		}, outcomeLabels),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.ProxyOutcomes,
	)

	return m
}

var standardMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod maps non-standard methods to "other" so the method label
// stays bounded.
func NormalizeMethod(method string) string {
	if standardMethods[method] {
		return method
	}
	return "other"
}

// pathLabels are the only path values that appear as labels. /health is the
// backend endpoint checked by the health handler.
var pathLabels = []string{
	"/api/users",
	"/api/applications",
	"/api/notifications",
	"/api/files",
	"/api/audit",
	"/api/health",
	"/api/favicon",
	"/favicon.ico",
	"/metrics",
	"/health",
}

// NormalizePath returns the label for path: the matching route prefix, or
// "other".
func NormalizePath(path string) string {
	path, _, _ = strings.Cut(path, "?")
	for _, p := range pathLabels {
		if path == p || strings.HasPrefix(path, p+"/") {
			return p
		}
	}
	return "other"
}
