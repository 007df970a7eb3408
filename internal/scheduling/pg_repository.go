package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository is the Postgres store. The schema carries the authoritative
// scheduling invariants: a partial unique index on non-cancelled
// (practitioner_id, visit_date, visit_minute) and a btree_gist exclusion
// constraint on closed window ranges per (practitioner_id, day_of_week).
// Constraint violations surface as the same sentinel errors the in-process
// checks raise, so racing writers lose cleanly.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	var specialty *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&specialty,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}

	p.Specialty = specialty
	return &p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanWindow(row pgx.Row) (*AvailabilityWindow, error) {
	var w AvailabilityWindow
	var startMinute, endMinute int

	err := row.Scan(
		&w.ID,
		&w.PractitionerID,
		&w.DayOfWeek,
		&startMinute,
		&endMinute,
		&w.SlotIntervalMinutes,
		&w.Status,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.StartTime = TimeOfDay(startMinute)
	w.EndTime = TimeOfDay(endMinute)
	return &w, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var minute int
	var cancelledAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.PractitionerID,
		&a.PatientID,
		&a.Date,
		&minute,
		&a.Kind,
		&a.Reason,
		&a.VideoLink,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
		&cancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Time = TimeOfDay(minute)
	a.CancelledAt = cancelledAt
	return &a, nil
}

// mapConstraintError converts Postgres constraint violations into the
// engine's sentinel errors.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		if pgErr.ConstraintName == "appointments_slot_booked_idx" {
			return ErrDoubleBooked
		}
	case "23P01": // exclusion_violation
		if pgErr.ConstraintName == "availability_windows_no_overlap" {
			return ErrScheduleConflict
		}
	}
	return err
}

const windowColumns = `id, practitioner_id, day_of_week, start_minute, end_minute, slot_interval_minutes, status, created_at, updated_at`

const appointmentColumns = `id, practitioner_id, patient_id, visit_date, visit_minute, kind, reason, video_link, status, created_at, updated_at, cancelled_at`

// Practitioners and patients

func (r *PgRepository) GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, status, created_at, updated_at
		FROM practitioners
		WHERE id = $1
	`, id)
	return scanPractitioner(row)
}

func (r *PgRepository) ListPractitionersByIDs(ctx context.Context, ids []uuid.UUID) ([]Practitioner, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, status, created_at, updated_at
		FROM practitioners
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Practitioner
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

// Availability windows

func (r *PgRepository) CreateWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_windows
			(id, practitioner_id, day_of_week, start_minute, end_minute, slot_interval_minutes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+windowColumns+`
	`, id, w.PractitionerID, w.DayOfWeek, int(w.StartTime), int(w.EndTime), w.SlotIntervalMinutes, w.Status)

	created, err := scanWindow(row)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return created, nil
}

func (r *PgRepository) UpdateWindow(ctx context.Context, w AvailabilityWindow) (*AvailabilityWindow, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE availability_windows
		SET practitioner_id = $2,
		    day_of_week = $3,
		    start_minute = $4,
		    end_minute = $5,
		    slot_interval_minutes = $6,
		    status = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+windowColumns+`
	`, w.ID, w.PractitionerID, w.DayOfWeek, int(w.StartTime), int(w.EndTime), w.SlotIntervalMinutes, w.Status)

	updated, err := scanWindow(row)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return updated, nil
}

func (r *PgRepository) GetWindowByID(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE id = $1
	`, id)
	return scanWindow(row)
}

func (r *PgRepository) ListWindowsForPractitionerDay(ctx context.Context, practitionerID uuid.UUID, day DayOfWeek) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE practitioner_id = $1 AND day_of_week = $2
		ORDER BY start_minute
	`, practitionerID, day)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (r *PgRepository) ListWindowsForPractitioner(ctx context.Context, practitionerID uuid.UUID) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE practitioner_id = $1
		ORDER BY day_of_week, start_minute
	`, practitionerID)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func (r *PgRepository) ListWindowsForDay(ctx context.Context, day DayOfWeek) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE day_of_week = $1
		ORDER BY practitioner_id, start_minute
	`, day)
	if err != nil {
		return nil, err
	}
	return collectWindows(rows)
}

func collectWindows(rows pgx.Rows) ([]AvailabilityWindow, error) {
	defer rows.Close()

	var result []AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

func (r *PgRepository) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_windows
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

func (r *PgRepository) DeleteWindowsForPractitioner(ctx context.Context, practitionerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM availability_windows
		WHERE practitioner_id = $1
	`, practitionerID)
	return err
}

// Appointments

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(id, practitioner_id, patient_id, visit_date, visit_minute, kind, reason, video_link, status, created_at, updated_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), NULL)
		RETURNING `+appointmentColumns+`
	`, id, a.PractitionerID, a.PatientID, a.Date, int(a.Time), a.Kind, a.Reason, a.VideoLink, a.Status, a.CreatedAt)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET practitioner_id = $2,
		    patient_id = $3,
		    visit_date = $4,
		    visit_minute = $5,
		    kind = $6,
		    reason = $7,
		    video_link = $8,
		    status = $9,
		    cancelled_at = $10,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, a.ID, a.PractitionerID, a.PatientID, a.Date, int(a.Time), a.Kind, a.Reason, a.VideoLink, a.Status, a.CancelledAt)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return updated, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindBookedAppointment(ctx context.Context, practitionerID uuid.UUID, date time.Time, t TimeOfDay) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE practitioner_id = $1
		  AND visit_date = $2
		  AND visit_minute = $3
		  AND status <> 'cancelled'
		LIMIT 1
	`, practitionerID, date, int(t))
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY visit_date DESC, visit_minute DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// Event log

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, window_id, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.EventType, ev.AppointmentID, ev.WindowID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
