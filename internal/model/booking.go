package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
    BookingStatusPending   BookingStatus = "pending"
    BookingStatusConfirmed BookingStatus = "confirmed"
    BookingStatusCancelled BookingStatus = "cancelled"
)

// ActiveStatuses are the statuses that occupy the calendar.  Cancelled
// bookings never take part in conflict checks.
var ActiveStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// IsActive reports whether a booking in status s blocks its slot.
func (s BookingStatus) IsActive() bool {
    for _, a := range ActiveStatuses {
        if s == a {
            return true
        }
    }
    return false
}

// transitions lists, for every current status, the target statuses an
// admin may move a booking to.  Re-applying the current status is allowed
// for confirmed and cancelled and is treated as a no-op by callers.
var transitions = map[BookingStatus]map[BookingStatus]bool{
    BookingStatusPending: {
        BookingStatusConfirmed: true,
        BookingStatusCancelled: true,
    },
    BookingStatusConfirmed: {
        BookingStatusConfirmed: true,
        BookingStatusCancelled: true,
    },
    BookingStatusCancelled: {
        BookingStatusCancelled: true,
    },
}

// CanTransition reports whether from -> to is permitted.
func CanTransition(from, to BookingStatus) bool {
    return transitions[from][to]
}

// Booking is a client's claim on a slot of the shared salon calendar.
//
// Fields:
//  ID          – UUID string.
//  ServiceID   – service being booked.
//  ClientName  – trimmed client name (>= 2 chars).
//  ClientPhone – trimmed phone (>= 6 chars).
//  ClientEmail – optional email, nil when not given.
//  StartTime   – slot start, UTC.
//  EndTime     – slot end (exclusive), UTC.
//  Status      – pending, confirmed or cancelled.
//  CreatedAt   – creation timestamp, UTC.
type Booking struct {
    ID          string        `json:"id" bson:"_id"`
    ServiceID   string        `json:"serviceId" bson:"serviceId"`
    ClientName  string        `json:"clientName" bson:"clientName"`
    ClientPhone string        `json:"clientPhone" bson:"clientPhone"`
    ClientEmail *string       `json:"clientEmail,omitempty" bson:"clientEmail,omitempty"`
    StartTime   time.Time     `json:"startTime" bson:"startTime"`
    EndTime     time.Time     `json:"endTime" bson:"endTime"`
    Status      BookingStatus `json:"status" bson:"status"`
    CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
}

// Overlaps is the half-open interval test for [aStart, aEnd) and
// [bStart, bEnd): a.start < b.end AND a.end > b.start.  Touching
// intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
    return aStart.Before(bEnd) && aEnd.After(bStart)
}

// HasConflict reports whether [start, end) overlaps any active booking in
// existing.  Cancelled bookings are ignored.
func HasConflict(start, end time.Time, existing []Booking) bool {
    for _, b := range existing {
        if !b.Status.IsActive() {
            continue
        }
        if Overlaps(b.StartTime, b.EndTime, start, end) {
            return true
        }
    }
    return false
}

// BookingView is the admin representation of a booking, with the service
// name resolved.
type BookingView struct {
    ID          string        `json:"id"`
    ServiceName string        `json:"serviceName"`
    ClientName  string        `json:"clientName"`
    ClientPhone string        `json:"clientPhone"`
    ClientEmail string        `json:"clientEmail"`
    StartTime   time.Time     `json:"startTime"`
    EndTime     time.Time     `json:"endTime"`
    Status      BookingStatus `json:"status"`
}

// PublicBooking is returned by the public listing.  It carries the
// service id and creation time in addition to the admin view fields.
type PublicBooking struct {
    BookingView
    ServiceID string    `json:"serviceId"`
    CreatedAt time.Time `json:"createdAt"`
}

// DeletedServiceName is shown when a booking references a service that no
// longer exists.
const DeletedServiceName = "(deleted service)"

// BookingFilter narrows booking listings.  A zero From/To means unbounded.
// The range applies to StartTime as [From, To).
type BookingFilter struct {
    From time.Time
    To   time.Time
}

// Matches reports whether b starts inside the filter range.
func (f BookingFilter) Matches(b Booking) bool {
    if !f.From.IsZero() && b.StartTime.Before(f.From) {
        return false
    }
    if !f.To.IsZero() && !b.StartTime.Before(f.To) {
        return false
    }
    return true
}
