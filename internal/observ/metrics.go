package observ

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service. Each instance owns
// its registry so tests can build as many as they like.
//
// All methods are safe on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	gateDecisions        *prometheus.CounterVec
	threadsOpened        *prometheus.CounterVec
	paymentNotifications *prometheus.CounterVec
	matchQueries         prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Access gate decisions by outcome",
		}, []string{"allowed"}),
		threadsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threads_opened_total",
			Help:      "Thread resolutions, split by whether a new thread was created",
		}, []string{"created"}),
		paymentNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_notifications_total",
			Help:      "Payment provider notifications by transaction status",
		}, []string{"status"}),
		matchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_queries_total",
			Help:      "Number of match queries served",
		}),
	}

	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.gateDecisions,
		m.threadsOpened,
		m.paymentNotifications,
		m.matchQueries,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) GateDecision(allowed bool) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(strconv.FormatBool(allowed)).Inc()
}

func (m *Metrics) ThreadOpened(created bool) {
	if m == nil {
		return
	}
	m.threadsOpened.WithLabelValues(strconv.FormatBool(created)).Inc()
}

func (m *Metrics) PaymentNotification(status string) {
	if m == nil {
		return
	}
	m.paymentNotifications.WithLabelValues(status).Inc()
}

func (m *Metrics) MatchQuery() {
	if m == nil {
		return
	}
	m.matchQueries.Inc()
}
