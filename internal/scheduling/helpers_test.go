package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/careloop/consultation-scheduling/internal/redis"
)

var errLockBusy = redisclient.ErrLockNotAcquired

// memRepo is a stateful in-memory Repository for service tests.
type memRepo struct {
	practitioners map[uuid.UUID]Practitioner
	patients      map[uuid.UUID]Patient
	windows       map[uuid.UUID]AvailabilityWindow
	appointments  map[uuid.UUID]Appointment
	events        []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{
		practitioners: make(map[uuid.UUID]Practitioner),
		patients:      make(map[uuid.UUID]Patient),
		windows:       make(map[uuid.UUID]AvailabilityWindow),
		appointments:  make(map[uuid.UUID]Appointment),
	}
}

func (r *memRepo) GetPractitionerByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	p, ok := r.practitioners[id]
	if !ok {
		return nil, ErrPractitionerNotFound
	}
	return &p, nil
}

func (r *memRepo) ListPractitionersByIDs(_ context.Context, ids []uuid.UUID) ([]Practitioner, error) {
	var result []Practitioner
	for _, id := range ids {
		if p, ok := r.practitioners[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *memRepo) CreateWindow(_ context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	w.ID = uuid.New()
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	r.windows[w.ID] = w
	return &w, nil
}

func (r *memRepo) UpdateWindow(_ context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	if _, ok := r.windows[w.ID]; !ok {
		return nil, ErrWindowNotFound
	}
	w.UpdatedAt = time.Now()
	r.windows[w.ID] = w
	return &w, nil
}

func (r *memRepo) GetWindowByID(_ context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	w, ok := r.windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	return &w, nil
}

func (r *memRepo) ListWindowsForPractitionerDay(_ context.Context, practitionerID uuid.UUID, day DayOfWeek) ([]AvailabilityWindow, error) {
	var result []AvailabilityWindow
	for _, w := range r.windows {
		if w.PractitionerID == practitionerID && w.DayOfWeek == day {
			result = append(result, w)
		}
	}
	return result, nil
}

func (r *memRepo) ListWindowsForPractitioner(_ context.Context, practitionerID uuid.UUID) ([]AvailabilityWindow, error) {
	var result []AvailabilityWindow
	for _, w := range r.windows {
		if w.PractitionerID == practitionerID {
			result = append(result, w)
		}
	}
	return result, nil
}

func (r *memRepo) ListWindowsForDay(_ context.Context, day DayOfWeek) ([]AvailabilityWindow, error) {
	var result []AvailabilityWindow
	for _, w := range r.windows {
		if w.DayOfWeek == day {
			result = append(result, w)
		}
	}
	return result, nil
}

func (r *memRepo) DeleteWindow(_ context.Context, id uuid.UUID) error {
	if _, ok := r.windows[id]; !ok {
		return ErrWindowNotFound
	}
	delete(r.windows, id)
	return nil
}

func (r *memRepo) DeleteWindowsForPractitioner(_ context.Context, practitionerID uuid.UUID) error {
	for id, w := range r.windows {
		if w.PractitionerID == practitionerID {
			delete(r.windows, id)
		}
	}
	return nil
}

func (r *memRepo) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	a.ID = uuid.New()
	a.UpdatedAt = time.Now()
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *memRepo) UpdateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	if _, ok := r.appointments[a.ID]; !ok {
		return nil, ErrAppointmentNotFound
	}
	a.UpdatedAt = time.Now()
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *memRepo) FindBookedAppointment(_ context.Context, practitionerID uuid.UUID, date time.Time, t TimeOfDay) (*Appointment, error) {
	for _, a := range r.appointments {
		if a.PractitionerID == practitionerID && a.Date.Equal(date) && a.Time == t && a.Status != StatusCancelled {
			found := a
			return &found, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepo) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	var result []Appointment
	for _, a := range r.appointments {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.events = append(r.events, ev)
	return nil
}

// passLocker runs the critical section without any locking.
type passLocker struct{}

func (passLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// failLocker refuses every acquisition.
type failLocker struct{ err error }

func (l failLocker) WithLock(context.Context, string, func(ctx context.Context) error) error {
	return l.err
}

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	return NewService(repo, passLocker{}, zerolog.Nop()), repo
}

func seedPractitioner(repo *memRepo, status PractitionerStatus) uuid.UUID {
	id := uuid.New()
	repo.practitioners[id] = Practitioner{ID: id, Name: "Dr. Test", Status: status}
	return id
}

func seedPatient(repo *memRepo) uuid.UUID {
	id := uuid.New()
	repo.patients[id] = Patient{ID: id, Name: "Pat Test"}
	return id
}

func seedWindow(repo *memRepo, practitionerID uuid.UUID, day DayOfWeek, start, end TimeOfDay, status WindowStatus) uuid.UUID {
	id := uuid.New()
	repo.windows[id] = AvailabilityWindow{
		ID:                  id,
		PractitionerID:      practitionerID,
		DayOfWeek:           day,
		StartTime:           start,
		EndTime:             end,
		SlotIntervalMinutes: 15,
		Status:              status,
	}
	return id
}
