package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the donation module.
type Metrics struct {
	// Donations by terminal outcome
	DonationOutcome *prometheus.CounterVec

	// Amounts of completed donations, in minor units
	CompletedAmount prometheus.Histogram

	// Confirm latency including gateway verification
	ConfirmLatency prometheus.Histogram

	// Initiated donations swept to failed by the expiry worker
	ExpiredTotal prometheus.Counter
}

// New creates a Metrics instance with all donation module metrics registered.
func New() *Metrics {
	return &Metrics{
		DonationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ngoconnect_donation_outcomes_total",
			Help: "Total donation outcomes by status and payment method",
		}, []string{"status", "method"}),

		CompletedAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ngoconnect_donation_completed_amount_minor",
			Help:    "Completed donation amounts in minor currency units",
			Buckets: prometheus.ExponentialBuckets(10000, 5, 7),
		}),

		ConfirmLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ngoconnect_donation_confirm_duration_seconds",
			Help:    "Duration of donation confirmation including proof verification",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		ExpiredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ngoconnect_donation_expired_total",
			Help: "Initiated donations marked failed by the stale sweep",
		}),
	}
}

// IncrementOutcome records a donation reaching a state.
func (m *Metrics) IncrementOutcome(status, method string) {
	if m != nil {
		m.DonationOutcome.WithLabelValues(status, method).Inc()
	}
}

// ObserveCompletedAmount records a completed donation's amount.
func (m *Metrics) ObserveCompletedAmount(amountMinor int64) {
	if m != nil {
		m.CompletedAmount.Observe(float64(amountMinor))
	}
}

// ObserveConfirmLatency records the duration of a Confirm call.
func (m *Metrics) ObserveConfirmLatency(d time.Duration) {
	if m != nil {
		m.ConfirmLatency.Observe(d.Seconds())
	}
}

// AddExpired records donations swept by the expiry pass.
func (m *Metrics) AddExpired(n int) {
	if m != nil {
		m.ExpiredTotal.Add(float64(n))
	}
}
