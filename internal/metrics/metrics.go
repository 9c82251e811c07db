// Package metrics encapsulates Prometheus instrumentation for the API
// surface and the document gateway.
package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service owns the metrics registry and the collectors shared across the
// process.
type Service struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
	gatewayErrors   *prometheus.CounterVec
}

// NewService registers the core collectors on a private registry.
func NewService() *Service {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	gatewayDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_op_duration_seconds",
		Help:    "Duration of document gateway operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "collection"})

	gatewayErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_op_errors_total",
		Help: "Failed document gateway operations",
	}, []string{"op", "collection"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, gatewayDuration, gatewayErrors, goroutines)

	return &Service{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		gatewayDuration: gatewayDuration,
		gatewayErrors:   gatewayErrors,
	}
}

// Registry exposes the underlying registry so other components can register
// their own collectors.
func (s *Service) Registry() prometheus.Registerer {
	return s.registry
}

// Handler serves the scrape endpoint.
func (s *Service) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one completed HTTP request.
func (s *Service) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

// ObserveGatewayOp records one document gateway call.
func (s *Service) ObserveGatewayOp(op, collection string, duration time.Duration, err error) {
	s.gatewayDuration.WithLabelValues(op, collection).Observe(duration.Seconds())
	if err != nil {
		s.gatewayErrors.WithLabelValues(op, collection).Inc()
	}
}
