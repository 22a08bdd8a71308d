package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidTransition is returned when an admin action would move a
	// booking along an edge the status table forbids, e.g. cancelled to
	// confirmed.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrInvalidDate        = errors.New("date must be YYYY-MM-DD")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries every rule a booking request violated.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}
