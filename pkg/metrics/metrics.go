package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	SweepRuns         prometheus.Counter
	SweepBookings     *prometheus.CounterVec
	SweepDuration     prometheus.Histogram
	WeatherFetches    *prometheus.CounterVec
	Generations       *prometheus.CounterVec
	BookingsCreated   prometheus.Counter
	ResourceConflicts *prometheus.CounterVec
	Transitions       *prometheus.CounterVec
	EventsPublished   prometheus.Counter
	ErrorsCount       *prometheus.CounterVec
}

// NewMetrics registers the metrics on reg. Passing nil uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SweepRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_runs_total",
			Help:      "The total number of completed weather sweeps",
		}),
		SweepBookings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_bookings_total",
			Help:      "Bookings processed by the weather sweep by outcome",
		}, []string{"outcome"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time taken by a full weather sweep",
			Buckets:   prometheus.DefBuckets,
		}),
		WeatherFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetches_total",
			Help:      "Weather snapshot lookups by result",
		}, []string{"result"}),
		Generations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reschedule_generations_total",
			Help:      "Reschedule option generations by path",
		}, []string{"path"}),
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "The total number of bookings created",
		}),
		ResourceConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_conflicts_total",
			Help:      "Rejected bookings by conflicting resource",
		}, []string{"axis"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Booking status transitions by target status",
		}, []string{"status"}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events delivered by the outbox relay",
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}

func (m *Metrics) ObserveSweep(started time.Time) {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
	m.SweepDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) SweepOutcome(outcome string) {
	if m == nil {
		return
	}
	m.SweepBookings.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WeatherFetch(result string) {
	if m == nil {
		return
	}
	m.WeatherFetches.WithLabelValues(result).Inc()
}

func (m *Metrics) Generation(path string) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(path).Inc()
}

func (m *Metrics) BookingCreated() {
	if m == nil {
		return
	}
	m.BookingsCreated.Inc()
}

func (m *Metrics) ResourceConflict(axis string) {
	if m == nil {
		return
	}
	m.ResourceConflicts.WithLabelValues(axis).Inc()
}

func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) EventPublished() {
	if m == nil {
		return
	}
	m.EventsPublished.Inc()
}

func (m *Metrics) Error(operation string) {
	if m == nil {
		return
	}
	m.ErrorsCount.WithLabelValues(operation).Inc()
}
