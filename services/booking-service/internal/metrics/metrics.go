package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes counters for the booking engine. A nil *Metrics is a no-op.
type Metrics struct {
	createTotal     *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	checkinTotal    *prometheus.CounterVec
	reminderTotal   *prometheus.CounterVec
	expiredTotal    prometheus.Counter
	outboxPublished prometheus.Counter
	gatherer        prometheus.Gatherer
}

// New registers the collectors on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		createTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barberq",
			Subsystem: "booking",
			Name:      "create_total",
			Help:      "Booking create attempts by result",
		}, []string{"result"}),
		transitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barberq",
			Subsystem: "booking",
			Name:      "transition_total",
			Help:      "Booking status transitions by target status",
		}, []string{"to"}),
		checkinTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barberq",
			Subsystem: "checkin",
			Name:      "scan_total",
			Help:      "Check-in scans by result",
		}, []string{"result"}),
		reminderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "barberq",
			Subsystem: "reminder",
			Name:      "total",
			Help:      "Upcoming-booking reminders by result",
		}, []string{"result"}),
		expiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "barberq",
			Subsystem: "sweeper",
			Name:      "expired_total",
			Help:      "Bookings expired by the sweeper",
		}),
		outboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "barberq",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox events relayed to Kafka",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.createTotal, m.transitionTotal, m.checkinTotal, m.reminderTotal, m.expiredTotal, m.outboxPublished)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// Handler serves the registry the metrics were registered on.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCreate(result string) {
	if m == nil {
		return
	}
	m.createTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(to).Inc()
}

func (m *Metrics) ObserveCheckIn(result string) {
	if m == nil {
		return
	}
	m.checkinTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveReminder(result string) {
	if m == nil {
		return
	}
	m.reminderTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredTotal.Add(float64(n))
}

func (m *Metrics) ObserveOutboxPublished(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.outboxPublished.Add(float64(n))
}
