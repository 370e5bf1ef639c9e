package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prokat",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "prokat",
			Name:      "bookings_created_total",
			Help:      "Successfully created bookings.",
		},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "prokat",
			Name:      "booking_conflicts_total",
			Help:      "Booking attempts rejected for window overlap.",
		},
	)

	assetTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prokat",
			Name:      "asset_transitions_total",
			Help:      "Asset lifecycle transitions by target state.",
		},
		[]string{"to_state"},
	)

	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prokat",
			Name:      "ledger_transactions_total",
			Help:      "Appended ledger transactions by type.",
		},
		[]string{"type"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingConflicts, assetTransitions, ledgerEntries)
	})
}

func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

func IncBookingCreated() {
	bookingsCreated.Inc()
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}

func IncAssetTransition(toState string) {
	assetTransitions.WithLabelValues(toState).Inc()
}

func IncLedgerEntry(txType string) {
	ledgerEntries.WithLabelValues(txType).Inc()
}
