package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/careloop/consultation-scheduling/internal/redis"
)

// CreateAppointment books an exact slot for a patient. The slot conflict is
// checked by exact equality of (practitioner, date, time) against
// non-cancelled appointments; the engine has no notion of appointment
// duration. A distributed lock serializes concurrent requests for the same
// slot; the store's unique constraint backs the check up.
func (s *Service) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	now := s.now()
	if err := validateAppointment(a, now); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPractitionerByID(ctx, a.PractitionerID); err != nil {
		if errors.Is(err, ErrPractitionerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load practitioner: %w", err)
	}
	if _, err := s.repo.GetPatientByID(ctx, a.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	a.Date = truncateToDate(a.Date)
	a.Status = StatusScheduled
	a.CreatedAt = now
	a.CancelledAt = nil

	var created *Appointment

	err := s.locker.WithLock(ctx, redisclient.SlotKey(a.PractitionerID, a.Date, int(a.Time)), func(lockCtx context.Context) error {
		if err := s.checkSlotFree(lockCtx, a, uuid.Nil); err != nil {
			return err
		}

		persisted, err := s.repo.CreateAppointment(lockCtx, a)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		created = persisted

		s.logAppointmentEvent(lockCtx, persisted.ID, EventAppointmentBooked, map[string]any{
			"practitioner_id": a.PractitionerID.String(),
			"patient_id":      a.PatientID.String(),
			"date":            a.Date.Format("2006-01-02"),
			"time":            a.Time.String(),
			"kind":            string(a.Kind),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	return created, nil
}

// UpdateAppointment reschedules or edits an existing appointment. The
// double-booking check only re-runs when the practitioner, date or time
// changed, and a conflict with the appointment's own record never blocks the
// update. Status and creation time are owned elsewhere and never touched
// here.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, a Appointment) (*Appointment, error) {
	existing, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := validateAppointment(a, now); err != nil {
		return nil, err
	}

	a.Date = truncateToDate(a.Date)

	slotChanged := !a.Date.Equal(existing.Date) ||
		a.Time != existing.Time ||
		a.PractitionerID != existing.PractitionerID

	existing.PractitionerID = a.PractitionerID
	existing.PatientID = a.PatientID
	existing.Date = a.Date
	existing.Time = a.Time
	existing.Kind = a.Kind
	existing.Reason = a.Reason
	existing.VideoLink = a.VideoLink

	persist := func(lockCtx context.Context) error {
		if slotChanged {
			if err := s.checkSlotFree(lockCtx, *existing, existing.ID); err != nil {
				return err
			}
		}

		updated, err := s.repo.UpdateAppointment(lockCtx, *existing)
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		existing = updated

		if slotChanged {
			s.logAppointmentEvent(lockCtx, updated.ID, EventAppointmentMoved, map[string]any{
				"practitioner_id": updated.PractitionerID.String(),
				"date":            updated.Date.Format("2006-01-02"),
				"time":            updated.Time.String(),
			})
		}
		return nil
	}

	if slotChanged {
		err = s.locker.WithLock(ctx, redisclient.SlotKey(existing.PractitionerID, existing.Date, int(existing.Time)), persist)
	} else {
		err = persist(ctx)
	}
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	return existing, nil
}

// checkSlotFree fails with ErrDoubleBooked when a non-cancelled appointment
// already occupies the exact slot. excludeID lets a reschedule ignore its
// own record.
func (s *Service) checkSlotFree(ctx context.Context, a Appointment, excludeID uuid.UUID) error {
	occupant, err := s.repo.FindBookedAppointment(ctx, a.PractitionerID, a.Date, a.Time)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil
		}
		return fmt.Errorf("check slot occupancy: %w", err)
	}
	if occupant.ID == excludeID {
		return nil
	}
	return fmt.Errorf("%w: %s at %s %s", ErrDoubleBooked,
		a.PractitionerID, a.Date.Format("2006-01-02"), a.Time)
}

// GetAppointment loads one appointment by id.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// ListAppointmentsByPatient pages through a patient's appointments.
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
