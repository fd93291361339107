package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "table_reservation",
			Name:      "booking_attempts_total",
			Help:      "Reserve calls by outcome.",
		},
		[]string{"outcome"},
	)

	casConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "table_reservation",
			Name:      "cas_conflicts_total",
			Help:      "Version conflicts hit by restaurant mutations, per operation.",
		},
		[]string{"operation"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "table_reservation",
			Name:      "notifications_total",
			Help:      "Booking notifications by delivery status.",
		},
		[]string{"status"},
	)

	inventoryResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "table_reservation",
			Name:      "inventory_resets_total",
			Help:      "Capacity changes that regenerated a restaurant's tables.",
		},
	)
)

// Register registers metrics with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingAttempts, casConflicts, notifications, inventoryResets)
	})
}

func IncBookingAttempt(outcome string) {
	bookingAttempts.WithLabelValues(outcome).Inc()
}

func IncCASConflict(operation string) {
	casConflicts.WithLabelValues(operation).Inc()
}

func IncNotification(status string) {
	notifications.WithLabelValues(status).Inc()
}

func IncInventoryReset() {
	inventoryResets.Inc()
}
