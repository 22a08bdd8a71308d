// Package repository holds the persistence layer for services and bookings.
// Every backing store (MySQL, MongoDB, in-memory) returns the sentinel
// values below so that higher layers can tell failure scenarios apart
// without knowing which driver is in use.
package repository

import "errors"

// ErrServiceNotFound is returned when a service id does not resolve.
// Booking creation reports it to clients as a 400.
var ErrServiceNotFound = errors.New("service not found")

// ErrBookingNotFound is returned when a booking id does not resolve.
// Handlers translate this into an HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSlotTaken is returned by CreateIfNoConflict when an active booking
// already overlaps the requested interval.  Handlers translate this
// into an HTTP 409 response.
var ErrSlotTaken = errors.New("slot already booked")

// ErrStatusChanged is returned by UpdateStatus when the booking no longer
// has the expected current status, i.e. another request changed it first.
var ErrStatusChanged = errors.New("booking status changed")
