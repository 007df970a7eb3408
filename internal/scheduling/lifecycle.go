package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// The lifecycle guards are asymmetric on purpose: each operation forbids
// specific source states rather than allowing specific ones, mirroring the
// observed behavior of the product. Notably complete() only forbids
// cancelled, so a no-show appointment can still be completed; the reverse
// path does not exist.

// CompleteAppointment marks an appointment completed. Forbidden only when
// the appointment is cancelled.
func (s *Service) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status == StatusCancelled {
		return nil, transitionError("complete", appt.Status)
	}

	appt.Status = StatusCompleted

	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	s.logAppointmentEvent(ctx, updated.ID, EventAppointmentClosed, map[string]any{})
	return updated, nil
}

// CancelAppointment cancels an appointment and records the cancellation
// time. Forbidden only when the appointment is completed. Cancelling frees
// the exact slot for rebooking.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status == StatusCompleted {
		return nil, transitionError("cancel", appt.Status)
	}

	now := s.now()
	appt.Status = StatusCancelled
	// The cancellation timestamp is set once; re-cancelling an already
	// cancelled appointment keeps the original moment.
	if appt.CancelledAt == nil {
		appt.CancelledAt = &now
	}

	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logAppointmentEvent(ctx, updated.ID, EventAppointmentVoided, map[string]any{
		"cancelled_at": updated.CancelledAt,
	})
	return updated, nil
}

// MarkNoShow records that the patient did not attend. Forbidden when the
// appointment is cancelled or completed.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status == StatusCancelled || appt.Status == StatusCompleted {
		return nil, transitionError("mark no-show", appt.Status)
	}

	appt.Status = StatusNoShow

	updated, err := s.repo.UpdateAppointment(ctx, *appt)
	if err != nil {
		return nil, fmt.Errorf("mark appointment no-show: %w", err)
	}

	s.logAppointmentEvent(ctx, updated.ID, EventAppointmentNoShow, map[string]any{})
	return updated, nil
}

func transitionError(op string, current AppointmentStatus) error {
	return fmt.Errorf("%w: cannot %s an appointment in status %q", ErrInvalidTransition, op, current)
}
