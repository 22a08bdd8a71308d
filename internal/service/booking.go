package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/salon-booking/internal/metrics"
	"github.com/iliyamo/salon-booking/internal/model"
	"github.com/iliyamo/salon-booking/internal/queue"
	"github.com/iliyamo/salon-booking/internal/repository"
)

// publishTimeout bounds each asynchronous event publish.
const publishTimeout = 5 * time.Second

// BookingService validates, creates and transitions bookings against a
// single shared calendar.
type BookingService struct {
	services  ServiceStore
	bookings  BookingStore
	publisher EventPublisher
	log       *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewBookingService wires the service.  publisher may be nil.  loc is the
// zone used to interpret admin date filters; nil means UTC.
func NewBookingService(
	services ServiceStore,
	bookings BookingStore,
	publisher EventPublisher,
	log *zap.Logger,
	loc *time.Location,
) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingService{
		services:  services,
		bookings:  bookings,
		publisher: publisher,
		log:       log,
		loc:       loc,
		now:       time.Now,
	}
}

// ListServices returns the catalogue ordered by name.
func (s *BookingService) ListServices(ctx context.Context) ([]model.Service, error) {
	out, err := s.services.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return out, nil
}

// Create runs the booking pipeline: resolve the service, validate the
// request, normalize times to UTC and atomically insert unless the slot
// overlaps an active booking.  New bookings are confirmed immediately.
//
// Errors: repository.ErrServiceNotFound, *ValidationError,
// repository.ErrSlotTaken, or a wrapped store error.
func (s *BookingService) Create(ctx context.Context, in BookingInput) (*model.Booking, error) {
	serviceID := strings.TrimSpace(in.ServiceID)
	if serviceID == "" {
		metrics.IncBookingCreated(metrics.ResultServiceMissing)
		return nil, repository.ErrServiceNotFound
	}
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			metrics.IncBookingCreated(metrics.ResultServiceMissing)
			return nil, err
		}
		metrics.IncBookingCreated(metrics.ResultError)
		return nil, fmt.Errorf("resolve service: %w", err)
	}

	if details := ValidateBooking(in, svc); len(details) > 0 {
		metrics.IncBookingCreated(metrics.ResultInvalid)
		return nil, &ValidationError{Details: details}
	}

	start, _ := ParseTime(in.StartTime)
	end, _ := ParseTime(in.EndTime)
	b := &model.Booking{
		ID:          uuid.NewString(),
		ServiceID:   svc.ID,
		ClientName:  strings.TrimSpace(in.ClientName),
		ClientPhone: strings.TrimSpace(in.ClientPhone),
		StartTime:   storedTime(start),
		EndTime:     storedTime(end),
		Status:      model.BookingStatusConfirmed,
		CreatedAt:   s.now().UTC(),
	}
	if email := strings.TrimSpace(in.ClientEmail); email != "" {
		b.ClientEmail = &email
	}

	if err := s.bookings.CreateIfNoConflict(ctx, b); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			metrics.IncBookingCreated(metrics.ResultConflict)
			return nil, err
		}
		metrics.IncBookingCreated(metrics.ResultError)
		return nil, fmt.Errorf("create booking: %w", err)
	}
	metrics.IncBookingCreated(metrics.ResultCreated)

	s.log.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("service_id", b.ServiceID),
		zap.Time("start", b.StartTime),
		zap.Time("end", b.EndTime),
	)
	s.publishAsync(ctx, s.event(queue.EventBookingCreated, b, svc.Name, ""))
	return b, nil
}

// Confirm moves a booking to confirmed.
func (s *BookingService) Confirm(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, model.BookingStatusConfirmed)
}

// Cancel moves a booking to cancelled.
func (s *BookingService) Cancel(ctx context.Context, id string) (*model.Booking, error) {
	return s.transition(ctx, id, model.BookingStatusCancelled)
}

// transition applies an admin status change.  Re-applying the current
// status succeeds without a write.  repository.ErrBookingNotFound and
// ErrInvalidTransition are returned unwrapped.
func (s *BookingService) transition(ctx context.Context, id string, to model.BookingStatus) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if !model.CanTransition(b.Status, to) {
		return nil, ErrInvalidTransition
	}
	if b.Status == to {
		return b, nil
	}

	from := b.Status
	if err := s.bookings.UpdateStatus(ctx, id, from, to); err != nil {
		if !errors.Is(err, repository.ErrStatusChanged) {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("update booking status: %w", err)
		}
		// Someone else changed the status first; settle on whatever
		// is stored now.
		current, gerr := s.bookings.GetByID(ctx, id)
		if gerr != nil {
			return nil, fmt.Errorf("reload booking: %w", gerr)
		}
		if current.Status == to {
			return current, nil
		}
		return nil, ErrInvalidTransition
	}
	b.Status = to
	metrics.IncBookingStatusChanged(string(to))

	s.log.Info("booking status changed",
		zap.String("booking_id", b.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	s.publishAsync(ctx, s.event(queue.EventBookingStatusChanged, b, s.serviceName(ctx, b.ServiceID), from))
	return b, nil
}

// ListPublic returns every booking, most recent start first.
func (s *BookingService) ListPublic(ctx context.Context) ([]model.PublicBooking, error) {
	bookings, err := s.bookings.List(ctx, model.BookingFilter{})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	names, err := s.serviceNames(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.PublicBooking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, model.PublicBooking{
			BookingView: toView(b, names),
			ServiceID:   b.ServiceID,
			CreatedAt:   b.CreatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

// ListAdmin returns bookings ordered by start time.  A non-empty date
// (YYYY-MM-DD) restricts the result to bookings starting on that calendar
// day in the configured zone.
func (s *BookingService) ListAdmin(ctx context.Context, date string) ([]model.BookingView, error) {
	var f model.BookingFilter
	if date = strings.TrimSpace(date); date != "" {
		from, to, err := DayRange(date, s.loc)
		if err != nil {
			return nil, err
		}
		f = model.BookingFilter{From: from, To: to}
	}
	bookings, err := s.bookings.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	names, err := s.serviceNames(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.BookingView, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toView(b, names))
	}
	return out, nil
}

// storedTime normalizes t to UTC at the millisecond precision kept by the
// DATETIME(3) and BSON date columns.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// DayRange returns [midnight, next midnight) of date in loc, as UTC.
func DayRange(date string, loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}

func (s *BookingService) serviceNames(ctx context.Context) (map[string]string, error) {
	services, err := s.services.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	names := make(map[string]string, len(services))
	for _, svc := range services {
		names[svc.ID] = svc.Name
	}
	return names, nil
}

func (s *BookingService) serviceName(ctx context.Context, id string) string {
	svc, err := s.services.GetByID(ctx, id)
	if err != nil {
		return model.DeletedServiceName
	}
	return svc.Name
}

func toView(b model.Booking, names map[string]string) model.BookingView {
	name, ok := names[b.ServiceID]
	if !ok {
		name = model.DeletedServiceName
	}
	email := ""
	if b.ClientEmail != nil {
		email = *b.ClientEmail
	}
	return model.BookingView{
		ID:          b.ID,
		ServiceName: name,
		ClientName:  b.ClientName,
		ClientPhone: b.ClientPhone,
		ClientEmail: email,
		StartTime:   b.StartTime,
		EndTime:     b.EndTime,
		Status:      b.Status,
	}
}

func (s *BookingService) event(typ string, b *model.Booking, serviceName string, prev model.BookingStatus) queue.BookingEvent {
	return queue.BookingEvent{
		Type:           typ,
		BookingID:      b.ID,
		ServiceID:      b.ServiceID,
		ServiceName:    serviceName,
		ClientName:     b.ClientName,
		StartTime:      b.StartTime.Format(time.RFC3339),
		EndTime:        b.EndTime.Format(time.RFC3339),
		Status:         string(b.Status),
		PreviousStatus: string(prev),
		OccurredAt:     s.now().UTC().Format(time.RFC3339),
	}
}

// publishAsync sends ev in the background.  The request context is
// detached so the publish outlives the HTTP response.
func (s *BookingService) publishAsync(ctx context.Context, ev queue.BookingEvent) {
	if s.publisher == nil {
		return
	}
	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.Warn("publish booking event failed",
				zap.String("type", ev.Type),
				zap.String("booking_id", ev.BookingID),
				zap.Error(err),
			)
		}
	}(context.WithoutCancel(ctx))
}
