package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type WindowStatus string

const (
	WindowActive   WindowStatus = "active"
	WindowInactive WindowStatus = "inactive"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

type AppointmentKind string

const (
	KindInPerson     AppointmentKind = "in_person"
	KindTelemedicine AppointmentKind = "telemedicine"
)

type PractitionerStatus string

const (
	PractitionerActive   PractitionerStatus = "active"
	PractitionerInactive PractitionerStatus = "inactive"
)

type Practitioner struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	Status    PractitionerStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityWindow is a recurring weekly interval during which a
// practitioner accepts appointments. Boundaries are inclusive for conflict
// detection: two windows of the same practitioner and day conflict when
// existing.Start <= new.End && existing.End >= new.Start, regardless of
// window status.
type AvailabilityWindow struct {
	ID                  uuid.UUID
	PractitionerID      uuid.UUID
	DayOfWeek           DayOfWeek
	StartTime           TimeOfDay
	EndTime             TimeOfDay
	SlotIntervalMinutes int
	Status              WindowStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Overlaps reports the inclusive-boundary interval intersection used for
// window conflict detection. Windows that merely touch at an endpoint count
// as overlapping.
func (w AvailabilityWindow) Overlaps(other AvailabilityWindow) bool {
	return w.StartTime <= other.EndTime && w.EndTime >= other.StartTime
}

// Covers reports whether t lies within [StartTime, EndTime], inclusive on
// both ends.
func (w AvailabilityWindow) Covers(t TimeOfDay) bool {
	return w.StartTime <= t && t <= w.EndTime
}

// Appointment consumes a single exact point in time of a practitioner's
// calendar. There is no duration field; conflict is exact-slot equality of
// (practitioner, date, time).
type Appointment struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	Date           time.Time // calendar date, midnight UTC
	Time           TimeOfDay
	Kind           AppointmentKind
	Reason         string
	VideoLink      string
	Status         AppointmentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CancelledAt    *time.Time
}

// StartsAt is the appointment's date and time combined into one instant.
func (a Appointment) StartsAt() time.Time {
	return a.Time.On(a.Date)
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	WindowID      *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
