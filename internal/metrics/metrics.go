// Package metrics collects and exposes Prometheus metrics for the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the interface middleware uses to report request outcomes.
type Recorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
}

// Collector registers and updates the service's Prometheus metrics.
type Collector struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics on the provided registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookloft_http_requests_total",
			Help: "HTTP requests served, by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookloft_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.requests, c.duration)
	return c
}

// RecordRequest counts a served request and observes its latency.
func (c *Collector) RecordRequest(method, route string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.duration.Observe(duration.Seconds())
}

// Handler returns the scrape endpoint for the provided registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

var _ Recorder = (*Collector)(nil)
