package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics groups the HTTP and business counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	OrdersCreated        prometheus.Counter
	OrdersCancelled      prometheus.Counter
	OrderFailures        *prometheus.CounterVec
	ReservationRollbacks prometheus.Counter
	Payments             *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"route"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders that reached CREATED.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "Orders moved to CANCELLED.",
		}),
		OrderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_failures_total",
			Help:      "Rejected order creations by reason.",
		}, []string{"reason"}),
		ReservationRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_rollbacks_total",
			Help:      "Reservations that had to compensate already debited items.",
		}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Persisted payments by final status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.OrdersCreated, m.OrdersCancelled,
		m.OrderFailures, m.ReservationRollbacks, m.Payments)
	return m
}

func (m *Metrics) OrderCreated() {
	if m != nil {
		m.OrdersCreated.Inc()
	}
}

func (m *Metrics) OrderCancelled() {
	if m != nil {
		m.OrdersCancelled.Inc()
	}
}

func (m *Metrics) OrderFailed(reason string) {
	if m != nil {
		m.OrderFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ReservationRolledBack() {
	if m != nil {
		m.ReservationRollbacks.Inc()
	}
}

func (m *Metrics) PaymentRecorded(status string) {
	if m != nil {
		m.Payments.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ObserveRequest(route, status string, ms float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, status).Inc()
	m.LatencyMS.WithLabelValues(route).Observe(ms)
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
