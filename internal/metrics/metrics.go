// Package metrics exposes Prometheus instruments for the reservation core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_booking_attempts_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	cancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_cancellations_total",
			Help: "Cancellation attempts by result",
		},
		[]string{"result"},
	)

	promotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_waitlist_promotions_total",
			Help: "Waitlist entries promoted to confirmed bookings",
		},
	)

	conflictsResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_conflicts_resolved_total",
			Help: "Bookings cancelled because the user booked another slot at the same time",
		},
	)

	slotLockWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reservation_slot_lock_wait_seconds",
			Help:    "Time spent waiting for exclusive slot locks",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"operation"},
	)
)

// TrackBooking counts a finished booking attempt.
func TrackBooking(outcome string) {
	bookingAttempts.WithLabelValues(outcome).Inc()
}

// TrackCancel counts a finished cancellation attempt.
func TrackCancel(result string) {
	cancellations.WithLabelValues(result).Inc()
}

func TrackPromotion() {
	promotions.Inc()
}

func TrackConflictResolved() {
	conflictsResolved.Inc()
}

// TrackLockWait records how long an operation waited for its slot locks.
func TrackLockWait(operation string, d time.Duration) {
	slotLockWait.WithLabelValues(operation).Observe(d.Seconds())
}
