// Package metrics defines the Prometheus instruments of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use through a nil pointer; every recorder is then a no-op.
type Metrics struct {
	// HTTPRequestsTotal counts requests by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration is the request latency by method and route.
	HTTPRequestDuration *prometheus.HistogramVec

	BookingsCreatedTotal   prometheus.Counter
	BookingsCancelledTotal *prometheus.CounterVec
	RefundAmountTotal      prometheus.Counter

	// EmailsTotal counts email sends by kind and result.
	EmailsTotal *prometheus.CounterVec

	OTPIssuedTotal prometheus.Counter

	RealtimeSubscribers prometheus.Gauge
}

// New registers the metrics on reg; pass prometheus.DefaultRegisterer in main
// and a fresh registry in tests.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"method", "route"},
		),

		BookingsCreatedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_created_total",
				Help:      "Total number of confirmed checkouts",
			},
		),

		BookingsCancelledTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_cancelled_total",
				Help:      "Total number of cancellations by refund tier",
			},
			[]string{"tier"},
		),

		RefundAmountTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refund_amount_total",
				Help:      "Sum of refunds granted on cancellation",
			},
		),

		EmailsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_total",
				Help:      "Total number of transactional emails by kind and result",
			},
			[]string{"kind", "result"},
		),

		OTPIssuedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_issued_total",
				Help:      "Total number of one-time codes issued",
			},
		),

		RealtimeSubscribers: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "realtime_subscribers",
				Help:      "Open booking change websocket subscriptions",
			},
		),
	}
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func (m *Metrics) BookingCreated() {
	if m == nil {
		return
	}
	m.BookingsCreatedTotal.Inc()
}

func (m *Metrics) BookingCancelled(tier string, refund int64) {
	if m == nil {
		return
	}
	m.BookingsCancelledTotal.WithLabelValues(tier).Inc()
	m.RefundAmountTotal.Add(float64(refund))
}

func (m *Metrics) EmailSent(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EmailsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) OTPIssued() {
	if m == nil {
		return
	}
	m.OTPIssuedTotal.Inc()
}

func (m *Metrics) SubscriberDelta(d int) {
	if m == nil {
		return
	}
	m.RealtimeSubscribers.Add(float64(d))
}
