package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberq",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberq",
			Name:      "registrations_total",
			Help:      "Customer registrations by kind (walk_in or appointment).",
		},
		[]string{"kind"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "barberq",
			Name:      "status_changes_total",
			Help:      "Customer status transitions by target status.",
		},
		[]string{"status"},
	)

	positionRecomputes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barberq",
			Name:      "position_recomputes_total",
			Help:      "Queue position recomputation passes.",
		},
	)

	sweepCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barberq",
			Name:      "sweep_cycles_total",
			Help:      "Expiry sweeper cycles.",
		},
	)

	sweepExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "barberq",
			Name:      "sweep_expired_total",
			Help:      "In-service customers auto-completed by the sweeper.",
		},
	)

	queueLength = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "barberq",
			Name:      "queue_length",
			Help:      "Active customers per barber.",
		},
		[]string{"barber_id"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			registrations,
			statusChanges,
			positionRecomputes,
			sweepCycles,
			sweepExpired,
			queueLength,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncRegistration counts a registration; kind is walk_in or appointment.
func IncRegistration(kind string) {
	registrations.WithLabelValues(kind).Inc()
}

// IncStatusChange counts a transition to the given status.
func IncStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

// IncPositionRecompute counts one recomputation pass.
func IncPositionRecompute() {
	positionRecomputes.Inc()
}

// IncSweepCycle counts one sweeper cycle.
func IncSweepCycle() {
	sweepCycles.Inc()
}

// IncSweepExpired counts one auto-completed customer.
func IncSweepExpired() {
	sweepExpired.Inc()
}

// SetQueueLength records the active queue size for a barber.
func SetQueueLength(barberID string, n int) {
	queueLength.WithLabelValues(barberID).Set(float64(n))
}
