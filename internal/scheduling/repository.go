package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all store interactions needed by the engine. All
// durable state lives behind this interface; the engine itself is stateless
// between calls.
type Repository interface {
	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	ListPractitionersByIDs(ctx context.Context, ids []uuid.UUID) ([]Practitioner, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Availability windows.
	CreateWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error)
	UpdateWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error)
	GetWindowByID(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error)
	ListWindowsForPractitionerDay(ctx context.Context, practitionerID uuid.UUID, day DayOfWeek) ([]AvailabilityWindow, error)
	ListWindowsForPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]AvailabilityWindow, error)
	ListWindowsForDay(ctx context.Context, day DayOfWeek) ([]AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, id uuid.UUID) error
	DeleteWindowsForPractitioner(ctx context.Context, practitionerID uuid.UUID) error

	// Appointments.
	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// FindBookedAppointment returns the non-cancelled appointment occupying
	// the exact (practitioner, date, time) slot, or ErrAppointmentNotFound.
	FindBookedAppointment(ctx context.Context, practitionerID uuid.UUID, date time.Time, t TimeOfDay) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)

	// Audit trail, best effort.
	InsertEvent(ctx context.Context, ev EventLog) error
}
