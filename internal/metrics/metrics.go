// Package metrics exposes ticket lifecycle outcomes to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements service.Recorder.
type Metrics struct {
	issued        *prometheus.CounterVec
	assignments   *prometheus.CounterVec
	validations   *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		issued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_issued_total",
				Help: "Tickets issued, by whether a guest was attached at issue time",
			},
			[]string{"assigned"},
		),
		assignments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_assign_total",
				Help: "Guest assignment attempts by result",
			},
			[]string{"result"},
		),
		validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_validation_total",
				Help: "Ticket validation attempts by result",
			},
			[]string{"result"},
		),
		storeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ticket_store_duration_seconds",
				Help:    "Latency of ticket store calls",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) TicketIssued(assigned bool) {
	m.issued.WithLabelValues(strconv.FormatBool(assigned)).Inc()
}

func (m *Metrics) AssignResult(result string) {
	m.assignments.WithLabelValues(result).Inc()
}

func (m *Metrics) ValidationResult(result string) {
	m.validations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveStore(operation string, d time.Duration) {
	m.storeDuration.WithLabelValues(operation).Observe(d.Seconds())
}
