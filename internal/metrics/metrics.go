package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "studiobook"

var (
	once sync.Once

	cartMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart mutations by operation.",
		},
		[]string{"op"},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Count of slot availability checks by outcome.",
		},
		[]string{"outcome"},
	)

	confirmations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Count of confirmation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	packageQuotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "package_quotes_total",
			Help:      "Count of package quotes by camera count.",
		},
		[]string{"cameras"},
	)

	reservations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reservations_snapshot_size",
			Help:      "Number of reserved segments in the current snapshot.",
		},
	)

	feedErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_refresh_errors_total",
			Help:      "Count of failed reservation feed refreshes.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Count of booking request deliveries by channel and status.",
		},
		[]string{"channel", "status"},
	)

	activeCarts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_carts",
			Help:      "Number of carts held in memory.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			cartMutations,
			availabilityChecks,
			confirmations,
			packageQuotes,
			reservations,
			feedErrors,
			notifications,
			activeCarts,
		)
	})
}

func IncCartMutation(op string) {
	cartMutations.WithLabelValues(op).Inc()
}

// IncAvailabilityCheck records a check; outcome is "available" or the reason.
func IncAvailabilityCheck(outcome string) {
	availabilityChecks.WithLabelValues(outcome).Inc()
}

func IncConfirmation(outcome string) {
	confirmations.WithLabelValues(outcome).Inc()
}

func IncPackageQuote(cameras string) {
	packageQuotes.WithLabelValues(cameras).Inc()
}

func SetReservations(n int) {
	reservations.Set(float64(n))
}

func IncFeedError() {
	feedErrors.Inc()
}

func IncNotification(channel, status string) {
	notifications.WithLabelValues(channel, status).Inc()
}

func SetActiveCarts(n int) {
	activeCarts.Set(float64(n))
}
