// Package queue carries booking events over RabbitMQ: the payloads, a
// publisher used by the booking service and a consumer that keeps an
// append-only booking log.
package queue

// Event types carried in BookingEvent.Type.
const (
    EventBookingCreated       = "booking.created"
    EventBookingStatusChanged = "booking.status_changed"
)

// BookingEvent is published after a booking is created or changes status.
// It contains enough information for downstream consumers to log or
// notify without querying the primary store.
type BookingEvent struct {
    Type           string `json:"type"`
    BookingID      string `json:"booking_id"`
    ServiceID      string `json:"service_id"`
    ServiceName    string `json:"service_name"`
    ClientName     string `json:"client_name"`
    StartTime      string `json:"start_time"`
    EndTime        string `json:"end_time"`
    Status         string `json:"status"`
    PreviousStatus string `json:"previous_status,omitempty"`
    OccurredAt     string `json:"occurred_at"`
}
