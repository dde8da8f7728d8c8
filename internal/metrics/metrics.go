// Package metrics exposes Prometheus collectors for the checkout gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "headless_checkout"

// Metrics groups the gateway's collectors.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	Requests    *prometheus.CounterVec
	LatencyMS   *prometheus.HistogramVec
	Checkouts   *prometheus.CounterVec
	Upstream    *prometheus.CounterVec
	Resolutions *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "Inbound HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"handler"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by flow and outcome.",
		}, []string{"flow", "outcome"}),
		Upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "woocommerce_requests_total",
			Help:      "Outbound WooCommerce REST calls by operation and status.",
		}, []string{"operation", "status"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "product_resolutions_total",
			Help:      "Product slug lookups by outcome.",
		}, []string{"outcome"}),
		gatherer: reg,
	}

	reg.MustRegister(m.Requests, m.LatencyMS, m.Checkouts, m.Upstream, m.Resolutions)
	return m
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one inbound request.
func (m *Metrics) ObserveRequest(handler string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(d.Milliseconds()))
}

// ObserveCheckout records the outcome of a checkout flow.
// outcome is "ok" or an error code such as "REMOTE_ORDER_ERROR".
func (m *Metrics) ObserveCheckout(flow, outcome string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(flow, outcome).Inc()
}

// ObserveUpstream records an outbound call. status 0 means a transport error.
func (m *Metrics) ObserveUpstream(operation string, status int) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Upstream.WithLabelValues(operation, label).Inc()
}

// ObserveResolution records a slug lookup result.
func (m *Metrics) ObserveResolution(resolved bool) {
	if m == nil {
		return
	}
	outcome := "unresolved"
	if resolved {
		outcome = "resolved"
	}
	m.Resolutions.WithLabelValues(outcome).Inc()
}
