package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02T15:04Z", "2024-01-01T"+hhmm+"Z")
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name       string
		aStart     string
		aEnd       string
		bStart     string
		bEnd       string
		wantResult bool
	}{
		{"identical", "10:00", "10:30", "10:00", "10:30", true},
		{"partial overlap", "10:00", "10:30", "10:15", "10:45", true},
		{"contained", "10:00", "11:00", "10:15", "10:45", true},
		{"touching end to start", "10:00", "10:30", "10:30", "11:00", false},
		{"touching start to end", "10:30", "11:00", "10:00", "10:30", false},
		{"disjoint", "09:00", "09:30", "10:00", "10:30", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(at(tt.aStart), at(tt.aEnd), at(tt.bStart), at(tt.bEnd))
			assert.Equal(t, tt.wantResult, got)

			// the predicate is symmetric
			swapped := Overlaps(at(tt.bStart), at(tt.bEnd), at(tt.aStart), at(tt.aEnd))
			assert.Equal(t, got, swapped)
		})
	}
}

func TestHasConflict_IgnoresCancelled(t *testing.T) {
	existing := []Booking{
		{ID: "a", StartTime: at("10:00"), EndTime: at("10:30"), Status: BookingStatusCancelled},
		{ID: "b", StartTime: at("11:00"), EndTime: at("11:30"), Status: BookingStatusPending},
	}

	assert.False(t, HasConflict(at("10:00"), at("10:30"), existing))
	assert.True(t, HasConflict(at("11:15"), at("11:45"), existing))
	assert.False(t, HasConflict(at("11:30"), at("12:00"), existing))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		want     bool
	}{
		{BookingStatusPending, BookingStatusConfirmed, true},
		{BookingStatusPending, BookingStatusCancelled, true},
		{BookingStatusConfirmed, BookingStatusCancelled, true},
		{BookingStatusConfirmed, BookingStatusConfirmed, true},
		{BookingStatusCancelled, BookingStatusCancelled, true},
		{BookingStatusCancelled, BookingStatusConfirmed, false},
		{BookingStatusConfirmed, BookingStatusPending, false},
		{BookingStatusCancelled, BookingStatusPending, false},
		{BookingStatus("bogus"), BookingStatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestBookingStatus_IsActive(t *testing.T) {
	assert.True(t, BookingStatusPending.IsActive())
	assert.True(t, BookingStatusConfirmed.IsActive())
	assert.False(t, BookingStatusCancelled.IsActive())
}

func TestBookingFilter_Matches(t *testing.T) {
	f := BookingFilter{From: at("10:00"), To: at("12:00")}

	assert.True(t, f.Matches(Booking{StartTime: at("10:00")}))
	assert.True(t, f.Matches(Booking{StartTime: at("11:59")}))
	assert.False(t, f.Matches(Booking{StartTime: at("12:00")}))
	assert.False(t, f.Matches(Booking{StartTime: at("09:59")}))
	assert.True(t, BookingFilter{}.Matches(Booking{StartTime: at("03:00")}))
}
