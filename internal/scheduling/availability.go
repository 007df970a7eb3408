package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	redisclient "github.com/careloop/consultation-scheduling/internal/redis"
)

// CreateWindow validates and persists a new recurring availability window.
// It rejects a window that intersects any existing window of the same
// practitioner and day, inclusive of touching boundaries. The conflict check
// intentionally considers inactive windows too: a deactivated window still
// blocks new windows over the same interval.
func (s *Service) CreateWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	if err := validateWindow(w); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPractitionerByID(ctx, w.PractitionerID); err != nil {
		if errors.Is(err, ErrPractitionerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load practitioner: %w", err)
	}

	if w.Status == "" {
		w.Status = WindowActive
	}

	var created *AvailabilityWindow

	err := s.locker.WithLock(ctx, redisclient.WindowKey(w.PractitionerID, string(w.DayOfWeek)), func(lockCtx context.Context) error {
		if err := s.checkWindowOverlap(lockCtx, w, uuid.Nil); err != nil {
			return err
		}

		persisted, err := s.repo.CreateWindow(lockCtx, w)
		if err != nil {
			return fmt.Errorf("create window: %w", err)
		}
		created = persisted

		s.logWindowEvent(lockCtx, persisted.ID, EventWindowCreated, map[string]any{
			"practitioner_id": w.PractitionerID.String(),
			"day_of_week":     string(w.DayOfWeek),
			"start_time":      w.StartTime.String(),
			"end_time":        w.EndTime.String(),
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

// UpdateWindow overwrites the mutable fields of an existing window after
// re-running validation and the overlap check, excluding the window itself.
func (s *Service) UpdateWindow(ctx context.Context, id uuid.UUID, w AvailabilityWindow) (*AvailabilityWindow, error) {
	existing, err := s.repo.GetWindowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := validateWindow(w); err != nil {
		return nil, err
	}

	existing.PractitionerID = w.PractitionerID
	existing.DayOfWeek = w.DayOfWeek
	existing.StartTime = w.StartTime
	existing.EndTime = w.EndTime
	existing.SlotIntervalMinutes = w.SlotIntervalMinutes
	if w.Status != "" {
		existing.Status = w.Status
	}

	var updated *AvailabilityWindow

	err = s.locker.WithLock(ctx, redisclient.WindowKey(existing.PractitionerID, string(existing.DayOfWeek)), func(lockCtx context.Context) error {
		if err := s.checkWindowOverlap(lockCtx, *existing, existing.ID); err != nil {
			return err
		}

		persisted, err := s.repo.UpdateWindow(lockCtx, *existing)
		if err != nil {
			return fmt.Errorf("update window: %w", err)
		}
		updated = persisted

		s.logWindowEvent(lockCtx, persisted.ID, EventWindowUpdated, map[string]any{
			"practitioner_id": existing.PractitionerID.String(),
			"day_of_week":     string(existing.DayOfWeek),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	return updated, nil
}

// checkWindowOverlap rejects w when any other window of the same
// practitioner and day intersects it. excludeID skips the record under
// update. No status filter: inactive windows conflict exactly as active
// ones do.
func (s *Service) checkWindowOverlap(ctx context.Context, w AvailabilityWindow, excludeID uuid.UUID) error {
	siblings, err := s.repo.ListWindowsForPractitionerDay(ctx, w.PractitionerID, w.DayOfWeek)
	if err != nil {
		return fmt.Errorf("list windows for overlap check: %w", err)
	}

	for _, sibling := range siblings {
		if sibling.ID == excludeID {
			continue
		}
		if sibling.Overlaps(w) {
			return fmt.Errorf("%w: %s %s-%s intersects existing window %s (%s-%s)",
				ErrScheduleConflict, w.DayOfWeek, w.StartTime, w.EndTime,
				sibling.ID, sibling.StartTime, sibling.EndTime)
		}
	}
	return nil
}

// DeleteWindow removes a single window.
func (s *Service) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteWindow(ctx, id); err != nil {
		return err
	}
	s.logWindowEvent(ctx, id, EventWindowDeleted, map[string]any{})
	return nil
}

// DeleteAllWindowsForPractitioner bulk-removes every window owned by the
// practitioner. Unguarded operator operation.
func (s *Service) DeleteAllWindowsForPractitioner(ctx context.Context, practitionerID uuid.UUID) error {
	if err := s.repo.DeleteWindowsForPractitioner(ctx, practitionerID); err != nil {
		return fmt.Errorf("delete windows for practitioner: %w", err)
	}
	return nil
}

// ActivateWindow flips the window status to active without re-running the
// overlap check.
func (s *Service) ActivateWindow(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	return s.setWindowStatus(ctx, id, WindowActive)
}

// DeactivateWindow flips the window status to inactive. The window keeps
// blocking overlapping windows while deactivated.
func (s *Service) DeactivateWindow(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	return s.setWindowStatus(ctx, id, WindowInactive)
}

func (s *Service) setWindowStatus(ctx context.Context, id uuid.UUID, status WindowStatus) (*AvailabilityWindow, error) {
	existing, err := s.repo.GetWindowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.Status = status

	updated, err := s.repo.UpdateWindow(ctx, *existing)
	if err != nil {
		return nil, fmt.Errorf("set window status: %w", err)
	}
	return updated, nil
}

// ListWindowsForPractitioner returns every window of one practitioner,
// optionally narrowed to a single day.
func (s *Service) ListWindowsForPractitioner(ctx context.Context, practitionerID uuid.UUID, day DayOfWeek) ([]AvailabilityWindow, error) {
	if day != "" {
		if !day.Valid() {
			return nil, fmt.Errorf("%w: day of week %q is not valid", ErrInvalidWindow, day)
		}
		return s.repo.ListWindowsForPractitionerDay(ctx, practitionerID, day)
	}
	return s.repo.ListWindowsForPractitioner(ctx, practitionerID)
}
