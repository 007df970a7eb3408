package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Business-hour policy for availability windows and the bookable horizon for
// appointments. Fixed by product policy, not configuration.
const (
	BusinessDayStart = TimeOfDay(6 * 60)  // 06:00
	BusinessDayEnd   = TimeOfDay(22 * 60) // 22:00

	MinSlotIntervalMinutes = 5
	MaxSlotIntervalMinutes = 120

	// BookingHorizonMonths bounds how far ahead an appointment may be booked.
	BookingHorizonMonths = 6
)

// BookingPolicy names how appointment conflicts are detected. The engine
// only supports exact-slot equality of (practitioner, date, time); there is
// no appointment duration and no interval overlap against the practitioner's
// slot interval.
type BookingPolicy string

const PolicyExactSlot BookingPolicy = "exact_slot"

// ValidateTimeWindow is the pure time-window predicate shared by window and
// appointment validation. It fails when either bound is unset, the bounds are
// not strictly ordered, or the window leaves business hours.
func ValidateTimeWindow(start, end TimeOfDay) error {
	if !start.IsSet() {
		return fmt.Errorf("%w: start time is required", ErrInvalidWindow)
	}
	if !end.IsSet() {
		return fmt.Errorf("%w: end time is required", ErrInvalidWindow)
	}
	if start >= end {
		return fmt.Errorf("%w: start time %s must be before end time %s", ErrInvalidWindow, start, end)
	}
	if start < BusinessDayStart {
		return fmt.Errorf("%w: start time %s is before business hours (%s)", ErrInvalidWindow, start, BusinessDayStart)
	}
	if end > BusinessDayEnd {
		return fmt.Errorf("%w: end time %s is after business hours (%s)", ErrInvalidWindow, end, BusinessDayEnd)
	}
	return nil
}

// validateWindow consolidates the field checks shared by window create and
// update so the two paths cannot drift.
func validateWindow(w AvailabilityWindow) error {
	if w.PractitionerID == uuid.Nil {
		return fmt.Errorf("%w: practitioner is required", ErrInvalidWindow)
	}
	if !w.DayOfWeek.Valid() {
		return fmt.Errorf("%w: day of week %q is not valid", ErrInvalidWindow, w.DayOfWeek)
	}
	if w.SlotIntervalMinutes < MinSlotIntervalMinutes || w.SlotIntervalMinutes > MaxSlotIntervalMinutes {
		return fmt.Errorf("%w: slot interval must be between %d and %d minutes",
			ErrInvalidWindow, MinSlotIntervalMinutes, MaxSlotIntervalMinutes)
	}
	return ValidateTimeWindow(w.StartTime, w.EndTime)
}

// validateAppointment consolidates the field checks shared by appointment
// create and update. The clock is passed in so both paths judge the booking
// horizon against the same "now".
func validateAppointment(a Appointment, now time.Time) error {
	if a.PractitionerID == uuid.Nil {
		return fmt.Errorf("%w: practitioner is required", ErrInvalidAppointment)
	}
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient is required", ErrInvalidAppointment)
	}
	if a.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidAppointment)
	}
	if !a.Time.IsSet() {
		return fmt.Errorf("%w: time is required", ErrInvalidAppointment)
	}
	switch a.Kind {
	case KindInPerson:
	case KindTelemedicine:
		if strings.TrimSpace(a.VideoLink) == "" {
			return ErrMissingVideoLink
		}
	default:
		return fmt.Errorf("%w: kind %q is not valid", ErrInvalidAppointment, a.Kind)
	}

	startsAt := a.StartsAt()
	if !startsAt.After(now) {
		return fmt.Errorf("%w: %s is not after %s", ErrPastDate, startsAt.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	if startsAt.After(now.AddDate(0, BookingHorizonMonths, 0)) {
		return fmt.Errorf("%w: %s is more than %d months ahead", ErrTooFarAhead, startsAt.Format(time.RFC3339), BookingHorizonMonths)
	}
	return nil
}
