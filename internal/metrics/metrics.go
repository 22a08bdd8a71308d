package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels for booking_created_total.
const (
	ResultCreated        = "created"
	ResultConflict       = "conflict"
	ResultInvalid        = "invalid"
	ResultServiceMissing = "service_missing"
	ResultError          = "error"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "booking_created_total",
			Help:      "Booking creation attempts by result.",
		},
		[]string{"result"},
	)

	bookingStatusChanged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "booking_status_changed_total",
			Help:      "Admin status changes by target status.",
		},
		[]string{"status"},
	)

	login = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "salon",
			Name:      "login_total",
			Help:      "Admin login attempts by result.",
		},
		[]string{"result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingStatusChanged, login)
	})
}

func IncBookingCreated(result string) {
	bookingCreated.WithLabelValues(result).Inc()
}

func IncBookingStatusChanged(status string) {
	bookingStatusChanged.WithLabelValues(status).Inc()
}

func IncLogin(result string) {
	login.WithLabelValues(result).Inc()
}
