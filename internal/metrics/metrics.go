// Package metrics holds the prometheus collectors exported by the SDK and the
// sandbox. Each Recorder owns a private registry so several SDK instances can
// live in one process; a nil *Recorder is a valid no-op.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric names.
const (
	MetricGatewayRequestsTotal   = "storefront_gateway_requests_total"
	MetricGatewayRequestDuration = "storefront_gateway_request_duration_seconds"
	MetricQueryCacheTotal        = "storefront_query_cache_total"
	MetricSandboxRequestsTotal   = "storefront_sandbox_requests_total"
)

// Cache results.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheDedup = "dedup"
)

// Recorder records gateway, cache and sandbox activity.
type Recorder struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cache    *prometheus.CounterVec
	served   *prometheus.CounterVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricGatewayRequestsTotal,
			Help: "Requests issued by the gateway, by method and status (\"error\" for transport failures).",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricGatewayRequestDuration,
			Help:    "Gateway round-trip latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricQueryCacheTotal,
			Help: "Query cache lookups by result.",
		}, []string{"result"}),
		served: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricSandboxRequestsTotal,
			Help: "Requests served by the sandbox API, by method and status.",
		}, []string{"method", "status"}),
	}
	r.registry.MustRegister(r.requests, r.duration, r.cache, r.served)
	return r
}

// ObserveRequest records one gateway round trip. status 0 means the request
// never produced a response.
func (r *Recorder) ObserveRequest(method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, statusLabel(status)).Inc()
	r.duration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveCache records a cache lookup result (CacheHit, CacheMiss, CacheDedup).
func (r *Recorder) ObserveCache(result string) {
	if r == nil {
		return
	}
	r.cache.WithLabelValues(result).Inc()
}

// ObserveServed records a request answered by the sandbox.
func (r *Recorder) ObserveServed(method string, status int) {
	if r == nil {
		return
	}
	r.served.WithLabelValues(method, statusLabel(status)).Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}
