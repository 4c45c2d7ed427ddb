package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the volunteer module.
type Metrics struct {
	// Application lifecycle transitions by resulting status
	Transitions *prometheus.CounterVec

	// Hours recorded at completion
	CompletedHours prometheus.Histogram
}

// New creates a Metrics instance with all volunteer module metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ngoconnect_volunteer_transitions_total",
			Help: "Total volunteer application transitions by resulting status",
		}, []string{"status"}),

		CompletedHours: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ngoconnect_volunteer_completed_hours",
			Help:    "Activity hours recorded when applications complete",
			Buckets: []float64{1, 2, 4, 8, 16, 40, 100},
		}),
	}
}

// IncrementTransition records an application reaching a status.
func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

// ObserveCompletedHours records hours logged at completion.
func (m *Metrics) ObserveCompletedHours(hours float64) {
	if m != nil {
		m.CompletedHours.Observe(hours)
	}
}
