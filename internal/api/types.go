package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careloop/consultation-scheduling/internal/scheduling"
)

const dateLayout = "2006-01-02"

type WindowRequest struct {
	PractitionerID      string `json:"practitioner_id"`
	DayOfWeek           string `json:"day_of_week"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	SlotIntervalMinutes int    `json:"slot_interval_minutes"`
	Status              string `json:"status,omitempty"`
}

// ToWindow converts the request into a domain window. Absent fields stay at
// their zero values so the engine's validation owns the business rules; only
// syntactically malformed values are rejected here.
func (r WindowRequest) ToWindow() (scheduling.AvailabilityWindow, error) {
	var w scheduling.AvailabilityWindow

	if r.PractitionerID != "" {
		id, err := uuid.Parse(r.PractitionerID)
		if err != nil {
			return w, fmt.Errorf("practitioner_id must be a valid UUID")
		}
		w.PractitionerID = id
	}
	if r.DayOfWeek != "" {
		day, err := scheduling.ParseDayOfWeek(r.DayOfWeek)
		if err != nil {
			return w, err
		}
		w.DayOfWeek = day
	}
	if r.StartTime != "" {
		t, err := scheduling.ParseTimeOfDay(r.StartTime)
		if err != nil {
			return w, err
		}
		w.StartTime = t
	}
	if r.EndTime != "" {
		t, err := scheduling.ParseTimeOfDay(r.EndTime)
		if err != nil {
			return w, err
		}
		w.EndTime = t
	}
	w.SlotIntervalMinutes = r.SlotIntervalMinutes
	w.Status = scheduling.WindowStatus(r.Status)
	return w, nil
}

type WindowResponse struct {
	ID                  uuid.UUID `json:"id"`
	PractitionerID      uuid.UUID `json:"practitioner_id"`
	DayOfWeek           string    `json:"day_of_week"`
	StartTime           string    `json:"start_time"`
	EndTime             string    `json:"end_time"`
	SlotIntervalMinutes int       `json:"slot_interval_minutes"`
	Status              string    `json:"status"`
}

func toWindowResponse(w *scheduling.AvailabilityWindow) WindowResponse {
	return WindowResponse{
		ID:                  w.ID,
		PractitionerID:      w.PractitionerID,
		DayOfWeek:           string(w.DayOfWeek),
		StartTime:           w.StartTime.String(),
		EndTime:             w.EndTime.String(),
		SlotIntervalMinutes: w.SlotIntervalMinutes,
		Status:              string(w.Status),
	}
}

type AppointmentRequest struct {
	PractitionerID string `json:"practitioner_id"`
	PatientID      string `json:"patient_id"`
	Date           string `json:"date"` // YYYY-MM-DD
	Time           string `json:"time"` // HH:MM
	Kind           string `json:"kind"`
	Reason         string `json:"reason,omitempty"`
	VideoLink      string `json:"video_link,omitempty"`
}

func (r AppointmentRequest) ToAppointment() (scheduling.Appointment, error) {
	var a scheduling.Appointment

	if r.PractitionerID != "" {
		id, err := uuid.Parse(r.PractitionerID)
		if err != nil {
			return a, fmt.Errorf("practitioner_id must be a valid UUID")
		}
		a.PractitionerID = id
	}
	if r.PatientID != "" {
		id, err := uuid.Parse(r.PatientID)
		if err != nil {
			return a, fmt.Errorf("patient_id must be a valid UUID")
		}
		a.PatientID = id
	}
	if r.Date != "" {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return a, fmt.Errorf("date must be formatted as %s", dateLayout)
		}
		a.Date = d
	}
	if r.Time != "" {
		t, err := scheduling.ParseTimeOfDay(r.Time)
		if err != nil {
			return a, err
		}
		a.Time = t
	}
	a.Kind = scheduling.AppointmentKind(strings.ToLower(r.Kind))
	a.Reason = r.Reason
	a.VideoLink = r.VideoLink
	return a, nil
}

type AppointmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	PractitionerID uuid.UUID  `json:"practitioner_id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Kind           string     `json:"kind"`
	Reason         string     `json:"reason,omitempty"`
	VideoLink      string     `json:"video_link,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PractitionerID: a.PractitionerID,
		PatientID:      a.PatientID,
		Date:           a.Date.Format(dateLayout),
		Time:           a.Time.String(),
		Kind:           string(a.Kind),
		Reason:         a.Reason,
		VideoLink:      a.VideoLink,
		Status:         string(a.Status),
		CreatedAt:      a.CreatedAt,
		CancelledAt:    a.CancelledAt,
	}
}

type AvailabilityResponse struct {
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Day            string    `json:"day"`
	Time           string    `json:"time,omitempty"`
	Available      bool      `json:"available"`
}

type PractitionersAvailableResponse struct {
	Day             string      `json:"day"`
	Time            string      `json:"time,omitempty"`
	PractitionerIDs []uuid.UUID `json:"practitioner_ids"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
