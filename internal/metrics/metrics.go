// Package metrics declares the Prometheus collectors of the booking
// service.  They register on the default registry and are served by
// promhttp on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_attempts_total",
			Help: "Booking attempts by flow and outcome",
		},
		[]string{"flow", "outcome"},
	)

	bookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_transaction_duration_seconds",
			Help:    "Time from lock request to commit or rollback of a booking transaction",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"flow"},
	)

	bookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_status_transitions_total",
			Help: "Booking status changes after creation",
		},
		[]string{"to"},
	)

	analyticsFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_record_failures_total",
			Help: "Analytics events that could not be recorded",
		},
		[]string{"sink"},
	)

	dialogueSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_dialogue_steps_total",
			Help: "Chat dialogue turns by flow, step and result",
		},
		[]string{"flow", "step", "result"},
	)
)

// ObserveBooking records one booking attempt.
func ObserveBooking(flow, outcome string, elapsed time.Duration) {
	bookingAttempts.WithLabelValues(flow, outcome).Inc()
	bookingDuration.WithLabelValues(flow).Observe(elapsed.Seconds())
}

// ObserveTransition counts a status change.
func ObserveTransition(to string) { bookingTransitions.WithLabelValues(to).Inc() }

// AnalyticsFailed counts a swallowed analytics error.
func AnalyticsFailed(sink string) { analyticsFailures.WithLabelValues(sink).Inc() }

// ObserveDialogueStep counts a processed chat turn.
func ObserveDialogueStep(flow, step, result string) {
	dialogueSteps.WithLabelValues(flow, step, result).Inc()
}
