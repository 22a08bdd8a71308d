package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/salon-booking/internal/model"
)

// DurationTolerance is how far a booked interval may deviate from the
// service's nominal duration.
const DurationTolerance = 5 * time.Minute

// Validation messages reported to clients.
const (
	MsgClientName   = "clientName must be >= 2 chars"
	MsgClientPhone  = "clientPhone must be >= 6 chars"
	MsgStartTime    = "startTime must be ISO date"
	MsgEndTime      = "endTime must be ISO date"
	MsgEndAfter     = "endTime must be after startTime"
	MsgClientEmail  = "clientEmail invalid"
	msgDurationTmpl = "duration mismatch: expected ~%d minutes"
)

// BookingInput is a booking request as received from the client.  Times
// are kept as strings so that unparsable values can be reported as
// validation failures alongside the other rules.
type BookingInput struct {
	ServiceID   string
	ClientName  string
	ClientPhone string
	ClientEmail string
	StartTime   string
	EndTime     string
}

// contactFields are the trimmed text fields checked with struct tags.
type contactFields struct {
	ClientName  string `validate:"min=2"`
	ClientPhone string `validate:"min=6"`
	ClientEmail string `validate:"omitempty,simpleemail"`
}

var simpleEmailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("simpleemail", func(fl validator.FieldLevel) bool {
		return simpleEmailRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// timeLayouts are tried in order by ParseTime.  Layouts without a zone are
// read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 style timestamp.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidateBooking checks in against every rule and returns all violations
// in a fixed order; an empty result means the request is valid.  The
// duration rule needs a resolved service and a well-ordered interval.
func ValidateBooking(in BookingInput, svc *model.Service) []string {
	fields := contactFields{
		ClientName:  strings.TrimSpace(in.ClientName),
		ClientPhone: strings.TrimSpace(in.ClientPhone),
		ClientEmail: strings.TrimSpace(in.ClientEmail),
	}
	// A whitespace-only email was still provided and must fail the format
	// check instead of being skipped as absent.
	if fields.ClientEmail == "" && in.ClientEmail != "" {
		fields.ClientEmail = in.ClientEmail
	}
	failed := map[string]bool{}
	if err := validate.Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []string{err.Error()}
		}
		for _, fe := range verrs {
			failed[fe.Field()] = true
		}
	}

	var details []string
	if failed["ClientName"] {
		details = append(details, MsgClientName)
	}
	if failed["ClientPhone"] {
		details = append(details, MsgClientPhone)
	}

	start, startOK := ParseTime(in.StartTime)
	end, endOK := ParseTime(in.EndTime)
	if !startOK {
		details = append(details, MsgStartTime)
	}
	if !endOK {
		details = append(details, MsgEndTime)
	}
	if startOK && endOK {
		if !end.After(start) {
			details = append(details, MsgEndAfter)
		} else if svc != nil && !durationMatches(end.Sub(start), svc.DurationMinutes) {
			details = append(details, fmt.Sprintf(msgDurationTmpl, svc.DurationMinutes))
		}
	}

	if failed["ClientEmail"] {
		details = append(details, MsgClientEmail)
	}
	return details
}

func durationMatches(elapsed time.Duration, minutes int) bool {
	diff := elapsed - time.Duration(minutes)*time.Minute
	if diff < 0 {
		diff = -diff
	}
	return diff <= DurationTolerance
}
