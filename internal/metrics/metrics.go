// metrics — Prometheus-метрики шлюза: обновления токенов, решения guard'ов, HTTP.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eventhub_gateway"

// Metrics реализует session.Observer и guard.Recorder.
type Metrics struct {
	renewals    *prometheus.CounterVec
	renewalDur  prometheus.Histogram
	guards      *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

// New регистрирует метрики в reg (обычно prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renewals_total",
			Help:      "Access token renewals by outcome.",
		}, []string{"outcome"}),
		renewalDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "renewal_duration_seconds",
			Help:      "Duration of refresh -> access exchanges.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		guards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Navigation guard decisions.",
		}, []string{"guard", "decision"}),
		httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by the gateway.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(m.renewals, m.renewalDur, m.guards, m.httpReqs, m.httpLatency)

	return m
}

// RenewalFinished — session.Observer.
func (m *Metrics) RenewalFinished(outcome string, dur time.Duration) {
	m.renewals.WithLabelValues(outcome).Inc()
	if dur > 0 {
		m.renewalDur.Observe(dur.Seconds())
	}
}

// GuardDecision — guard.Recorder.
func (m *Metrics) GuardDecision(guard, decision string) {
	m.guards.WithLabelValues(guard, decision).Inc()
}

// ObserveHTTP фиксирует один обработанный запрос. route — шаблон маршрута chi,
// а не сырой путь, чтобы не раздувать кардинальность.
func (m *Metrics) ObserveHTTP(method, route string, status int, dur time.Duration) {
	m.httpReqs.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}
