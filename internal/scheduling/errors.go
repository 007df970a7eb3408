package scheduling

import "errors"

var (
	// Validation and business-rule failures, surfaced synchronously to the
	// caller and never retried internally.
	ErrInvalidWindow      = errors.New("invalid availability window")
	ErrScheduleConflict   = errors.New("availability window overlaps an existing window")
	ErrInvalidAppointment = errors.New("invalid appointment")
	ErrMissingVideoLink   = errors.New("telemedicine appointment requires a video link")
	ErrPastDate           = errors.New("appointment must be scheduled in the future")
	ErrTooFarAhead        = errors.New("appointment exceeds the booking horizon")
	ErrDoubleBooked       = errors.New("slot already has a non-cancelled appointment")
	ErrInvalidTransition  = errors.New("invalid appointment status transition")

	// ErrConcurrentModification is returned when the distributed lock for a
	// slot or schedule could not be acquired; the whole operation is safe to
	// retry.
	ErrConcurrentModification = errors.New("resource is being modified concurrently, please retry")

	// Lookup failures.
	ErrWindowNotFound       = errors.New("availability window not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrPatientNotFound      = errors.New("patient not found")
)
