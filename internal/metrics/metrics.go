// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// GeocodeLookups counts per-row geocoding outcomes: matched, unmatched, failed, cached, skipped.
	GeocodeLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "geosort_geocode_lookups_total", Help: "Geocoding lookups by outcome."},
		[]string{"outcome"},
	)
	// OptimizationRuns counts optimization passes by outcome: success, partial, failed.
	OptimizationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "geosort_optimization_runs_total", Help: "Route optimization passes by outcome."},
		[]string{"outcome"},
	)
	// ORSDuration records OpenRouteService call latency in seconds.
	ORSDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "geosort_ors_request_duration_seconds", Help: "OpenRouteService request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"endpoint", "status"},
	)
	// HTTPRequests counts requests by method, route and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "route", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
	// ActiveSessions is the number of live pipeline sessions.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "geosort_active_sessions", Help: "In-memory pipeline sessions."},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry. Safe to call more than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(GeocodeLookups)
		Registry.MustRegister(OptimizationRuns)
		Registry.MustRegister(ORSDuration)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(ActiveSessions)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// ObserveORS records one OpenRouteService round trip. status 0 means no response.
func ObserveORS(endpoint string, status int, d time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	ORSDuration.WithLabelValues(endpoint, label).Observe(d.Seconds())
}
