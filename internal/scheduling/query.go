package scheduling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// The availability queries answer point-in-window membership only. No
// discrete slot enumeration happens anywhere: a window advertises capacity,
// and the only question answered is whether a day (or a day and an exact
// time) is covered by an active window of an active practitioner.

// IsPractitionerAvailable reports whether the practitioner has at least one
// active window on the given day. When t is set, the window must also cover
// t inclusively on both ends. An inactive practitioner account is never
// available, whatever its windows say.
func (s *Service) IsPractitionerAvailable(ctx context.Context, practitionerID uuid.UUID, day DayOfWeek, t TimeOfDay) (bool, error) {
	if !day.Valid() {
		return false, fmt.Errorf("%w: day of week %q is not valid", ErrInvalidWindow, day)
	}

	p, err := s.repo.GetPractitionerByID(ctx, practitionerID)
	if err != nil {
		return false, err
	}
	if p.Status != PractitionerActive {
		return false, nil
	}

	windows, err := s.repo.ListWindowsForPractitionerDay(ctx, practitionerID, day)
	if err != nil {
		return false, fmt.Errorf("list windows: %w", err)
	}

	for _, w := range windows {
		if windowCoversQuery(w, t) {
			return true, nil
		}
	}
	return false, nil
}

// PractitionersAvailable returns the ids of all active practitioners with an
// active window on the given day (covering t, when set), de-duplicated and
// in first-seen order.
func (s *Service) PractitionersAvailable(ctx context.Context, day DayOfWeek, t TimeOfDay) ([]uuid.UUID, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: day of week %q is not valid", ErrInvalidWindow, day)
	}

	windows, err := s.repo.ListWindowsForDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list windows for day: %w", err)
	}

	seen := make(map[uuid.UUID]struct{}, len(windows))
	candidates := make([]uuid.UUID, 0, len(windows))
	for _, w := range windows {
		if !windowCoversQuery(w, t) {
			continue
		}
		if _, ok := seen[w.PractitionerID]; ok {
			continue
		}
		seen[w.PractitionerID] = struct{}{}
		candidates = append(candidates, w.PractitionerID)
	}

	if len(candidates) == 0 {
		return []uuid.UUID{}, nil
	}

	practitioners, err := s.repo.ListPractitionersByIDs(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("load practitioners: %w", err)
	}

	active := make(map[uuid.UUID]struct{}, len(practitioners))
	for _, p := range practitioners {
		if p.Status == PractitionerActive {
			active[p.ID] = struct{}{}
		}
	}

	result := make([]uuid.UUID, 0, len(candidates))
	for _, id := range candidates {
		if _, ok := active[id]; ok {
			result = append(result, id)
		}
	}
	return result, nil
}

func windowCoversQuery(w AvailabilityWindow, t TimeOfDay) bool {
	if w.Status != WindowActive {
		return false
	}
	if !t.IsSet() {
		return true
	}
	return w.Covers(t)
}
