// Package metrics exposes Prometheus collectors for HTTP traffic and pricing activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "parcelrate"

// Registry owns the collectors registered by the API.
type Registry struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	quotesTotal       *prometheus.CounterVec
	quoteAmount       *prometheus.HistogramVec
	ordersPlaced      *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	configUpdates     prometheus.Counter
}

// New creates a registry with Go runtime collectors and the API collectors registered.
func New(namespace string) *Registry {
	if namespace == "" {
		namespace = defaultNamespace
	}
	reg := prometheus.NewRegistry()
	m := &Registry{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
		quotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "quotes_total",
			Help:      "Pricing calls by path and outcome",
		}, []string{"path", "outcome"}),
		quoteAmount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "quote_total_amount",
			Help:      "Distribution of quoted totals in the configured currency",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 50000},
		}, []string{"path"}),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "placed_total",
			Help:      "Orders placed by zone and payment mode",
		}, []string{"zone", "payment_mode"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "status_transitions_total",
			Help:      "Delivery status transitions by target status",
		}, []string{"status"}),
		configUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "config_updates_total",
			Help:      "Rate configuration versions published",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.requestDuration,
		m.requestsInFlight,
		m.quotesTotal,
		m.quoteAmount,
		m.ordersPlaced,
		m.statusTransitions,
		m.configUpdates,
	)
	return m
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveQuote records a pricing call. total is ignored when outcome is not "ok".
func (m *Registry) ObserveQuote(path, outcome string, total float64) {
	if m == nil {
		return
	}
	m.quotesTotal.WithLabelValues(path, outcome).Inc()
	if outcome == OutcomeOK {
		m.quoteAmount.WithLabelValues(path).Observe(total)
	}
}

// ObserveOrderPlaced counts a booked order.
func (m *Registry) ObserveOrderPlaced(zone, paymentMode string) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(zone, paymentMode).Inc()
}

// ObserveStatusTransition counts a delivery status change.
func (m *Registry) ObserveStatusTransition(status string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status).Inc()
}

// ObserveConfigUpdate counts a published rate configuration.
func (m *Registry) ObserveConfigUpdate() {
	if m == nil {
		return
	}
	m.configUpdates.Inc()
}

// Outcome labels for ObserveQuote.
const (
	OutcomeOK            = "ok"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeUnavailable   = "unavailable"
	OutcomeInternalError = "error"
)

// Middleware records request count, latency and in-flight gauge labelled by chi route pattern.
func (m *Registry) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := routePattern(r)
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routePattern keeps label cardinality bounded by using the matched pattern rather than the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
