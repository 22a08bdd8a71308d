package service

import (
	"context"

	"github.com/iliyamo/salon-booking/internal/model"
	"github.com/iliyamo/salon-booking/internal/queue"
)

// ServiceStore is the read side of the service catalogue.
type ServiceStore interface {
	List(ctx context.Context) ([]model.Service, error)
	GetByID(ctx context.Context, id string) (*model.Service, error)
}

// BookingStore persists bookings.  Implementations must make
// CreateIfNoConflict atomic: the overlap check against active bookings and
// the insert happen as one step with respect to other callers.
type BookingStore interface {
	CreateIfNoConflict(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus) error
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
}

// EventPublisher delivers booking events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}
