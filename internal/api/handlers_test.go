package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careloop/consultation-scheduling/internal/scheduling"
)

// stubRepo is an in-memory scheduling.Repository for handler tests. It keeps
// just enough state to drive the service through the router.
type stubRepo struct {
	practitioners map[uuid.UUID]scheduling.Practitioner
	patients      map[uuid.UUID]scheduling.Patient
	windows       map[uuid.UUID]scheduling.AvailabilityWindow
	appointments  map[uuid.UUID]scheduling.Appointment
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		practitioners: make(map[uuid.UUID]scheduling.Practitioner),
		patients:      make(map[uuid.UUID]scheduling.Patient),
		windows:       make(map[uuid.UUID]scheduling.AvailabilityWindow),
		appointments:  make(map[uuid.UUID]scheduling.Appointment),
	}
}

func (r *stubRepo) GetPractitionerByID(_ context.Context, id uuid.UUID) (*scheduling.Practitioner, error) {
	p, ok := r.practitioners[id]
	if !ok {
		return nil, scheduling.ErrPractitionerNotFound
	}
	return &p, nil
}

func (r *stubRepo) ListPractitionersByIDs(_ context.Context, ids []uuid.UUID) ([]scheduling.Practitioner, error) {
	var result []scheduling.Practitioner
	for _, id := range ids {
		if p, ok := r.practitioners[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *stubRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*scheduling.Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, scheduling.ErrPatientNotFound
	}
	return &p, nil
}

func (r *stubRepo) CreateWindow(_ context.Context, w scheduling.AvailabilityWindow) (*scheduling.AvailabilityWindow, error) {
	w.ID = uuid.New()
	r.windows[w.ID] = w
	return &w, nil
}

func (r *stubRepo) UpdateWindow(_ context.Context, w scheduling.AvailabilityWindow) (*scheduling.AvailabilityWindow, error) {
	if _, ok := r.windows[w.ID]; !ok {
		return nil, scheduling.ErrWindowNotFound
	}
	r.windows[w.ID] = w
	return &w, nil
}

func (r *stubRepo) GetWindowByID(_ context.Context, id uuid.UUID) (*scheduling.AvailabilityWindow, error) {
	w, ok := r.windows[id]
	if !ok {
		return nil, scheduling.ErrWindowNotFound
	}
	return &w, nil
}

func (r *stubRepo) ListWindowsForPractitionerDay(_ context.Context, practitionerID uuid.UUID, day scheduling.DayOfWeek) ([]scheduling.AvailabilityWindow, error) {
	var result []scheduling.AvailabilityWindow
	for _, w := range r.windows {
		if w.PractitionerID == practitionerID && w.DayOfWeek == day {
			result = append(result, w)
		}
	}
	return result, nil
}

func (r *stubRepo) ListWindowsForPractitioner(_ context.Context, practitionerID uuid.UUID) ([]scheduling.AvailabilityWindow, error) {
	var result []scheduling.AvailabilityWindow
	for _, w := range r.windows {
		if w.PractitionerID == practitionerID {
			result = append(result, w)
		}
	}
	return result, nil
}

func (r *stubRepo) ListWindowsForDay(_ context.Context, day scheduling.DayOfWeek) ([]scheduling.AvailabilityWindow, error) {
	var result []scheduling.AvailabilityWindow
	for _, w := range r.windows {
		if w.DayOfWeek == day {
			result = append(result, w)
		}
	}
	return result, nil
}

func (r *stubRepo) DeleteWindow(_ context.Context, id uuid.UUID) error {
	if _, ok := r.windows[id]; !ok {
		return scheduling.ErrWindowNotFound
	}
	delete(r.windows, id)
	return nil
}

func (r *stubRepo) DeleteWindowsForPractitioner(_ context.Context, practitionerID uuid.UUID) error {
	for id, w := range r.windows {
		if w.PractitionerID == practitionerID {
			delete(r.windows, id)
		}
	}
	return nil
}

func (r *stubRepo) CreateAppointment(_ context.Context, a scheduling.Appointment) (*scheduling.Appointment, error) {
	a.ID = uuid.New()
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *stubRepo) UpdateAppointment(_ context.Context, a scheduling.Appointment) (*scheduling.Appointment, error) {
	if _, ok := r.appointments[a.ID]; !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *stubRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, scheduling.ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *stubRepo) FindBookedAppointment(_ context.Context, practitionerID uuid.UUID, date time.Time, t scheduling.TimeOfDay) (*scheduling.Appointment, error) {
	for _, a := range r.appointments {
		if a.PractitionerID == practitionerID && a.Date.Equal(date) && a.Time == t && a.Status != scheduling.StatusCancelled {
			found := a
			return &found, nil
		}
	}
	return nil, scheduling.ErrAppointmentNotFound
}

func (r *stubRepo) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]scheduling.Appointment, error) {
	var result []scheduling.Appointment
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

func (r *stubRepo) InsertEvent(context.Context, scheduling.EventLog) error {
	return nil
}

type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestRouter(t *testing.T) (http.Handler, *stubRepo, uuid.UUID, uuid.UUID) {
	t.Helper()
	repo := newStubRepo()

	practitionerID := uuid.New()
	repo.practitioners[practitionerID] = scheduling.Practitioner{
		ID: practitionerID, Name: "Dr. Adaeze Obi", Status: scheduling.PractitionerActive,
	}
	patientID := uuid.New()
	repo.patients[patientID] = scheduling.Patient{ID: patientID, Name: "Sam Rivers"}

	svc := scheduling.NewService(repo, noopLocker{}, zerolog.Nop())
	router := NewRouter(RouterConfig{
		Service: svc,
		Logger:  zerolog.Nop(),
		Env:     "test",
		Version: "test",
	})
	return router, repo, practitionerID, patientID
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

// bookableDate is a weekday-agnostic date safely inside the booking horizon.
func bookableDate() string {
	return time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
}

func appointmentBody(practitionerID, patientID uuid.UUID) AppointmentRequest {
	return AppointmentRequest{
		PractitionerID: practitionerID.String(),
		PatientID:      patientID.String(),
		Date:           bookableDate(),
		Time:           "10:00",
		Kind:           "in_person",
		Reason:         "follow-up",
	}
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	router, _, practitionerID, patientID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/appointments", appointmentBody(practitionerID, patientID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}

	var resp AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "scheduled" {
		t.Fatalf("status = %q, want scheduled", resp.Status)
	}
	if resp.Time != "10:00" {
		t.Fatalf("time = %q, want 10:00", resp.Time)
	}
	if resp.CancelledAt != nil {
		t.Fatal("cancelled_at must be absent on creation")
	}
}

func TestCreateAppointmentEndpointConflict(t *testing.T) {
	router, repo, practitionerID, patientID := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/appointments", appointmentBody(practitionerID, patientID)); rec.Code != http.StatusCreated {
		t.Fatalf("first booking status = %d, want 201", rec.Code)
	}

	otherPatient := uuid.New()
	repo.patients[otherPatient] = scheduling.Patient{ID: otherPatient, Name: "Jo Field"}

	rec := doJSON(t, router, http.MethodPost, "/appointments", appointmentBody(practitionerID, otherPatient))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}
	if resp := decodeError(t, rec); resp.Error != "double_booked" {
		t.Fatalf("error = %q, want double_booked", resp.Error)
	}
}

func TestCreateAppointmentEndpointValidation(t *testing.T) {
	router, _, practitionerID, patientID := newTestRouter(t)

	cases := []struct {
		name     string
		mutate   func(b *AppointmentRequest)
		wantCode int
		wantErr  string
	}{
		{"telemedicine without link", func(b *AppointmentRequest) { b.Kind = "telemedicine" }, http.StatusBadRequest, "missing_video_link"},
		{"malformed practitioner id", func(b *AppointmentRequest) { b.PractitionerID = "not-a-uuid" }, http.StatusBadRequest, "invalid_request"},
		{"malformed date", func(b *AppointmentRequest) { b.Date = "01/02/2026" }, http.StatusBadRequest, "invalid_request"},
		{"missing time", func(b *AppointmentRequest) { b.Time = "" }, http.StatusBadRequest, "invalid_appointment"},
		{"past date", func(b *AppointmentRequest) { b.Date = "2020-01-01" }, http.StatusBadRequest, "past_date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := appointmentBody(practitionerID, patientID)
			tc.mutate(&body)

			rec := doJSON(t, router, http.MethodPost, "/appointments", body)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantCode, rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Error != tc.wantErr {
				t.Fatalf("error = %q, want %q", resp.Error, tc.wantErr)
			}
		})
	}
}

func TestCreateAppointmentEndpointUnknownPractitioner(t *testing.T) {
	router, _, _, patientID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/appointments", appointmentBody(uuid.New(), patientID))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "practitioner_not_found" {
		t.Fatalf("error = %q, want practitioner_not_found", resp.Error)
	}
}

func TestGetAppointmentEndpoint(t *testing.T) {
	router, _, practitionerID, patientID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/appointments", appointmentBody(practitionerID, patientID))
	var created AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	rec = doJSON(t, router, http.MethodGet, "/appointments/"+created.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/appointments/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id status = %d, want 400", rec.Code)
	}
}

func TestLifecycleEndpoints(t *testing.T) {
	router, _, practitionerID, patientID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/appointments", appointmentBody(practitionerID, patientID))
	var created AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	base := "/appointments/" + created.ID.String()

	rec = doJSON(t, router, http.MethodPost, base+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	var completed AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &completed); err != nil {
		t.Fatalf("decode completed: %v", err)
	}
	if completed.Status != "completed" {
		t.Fatalf("status = %q, want completed", completed.Status)
	}

	// Cancelling a completed appointment is a guard violation.
	rec = doJSON(t, router, http.MethodPost, base+"/cancel", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel status = %d, want 409", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "invalid_transition" {
		t.Fatalf("error = %q, want invalid_transition", resp.Error)
	}

	rec = doJSON(t, router, http.MethodPost, "/appointments/"+uuid.NewString()+"/no-show", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no-show unknown id status = %d, want 404", rec.Code)
	}
}

func TestCancelEndpointSetsCancelledAt(t *testing.T) {
	router, _, practitionerID, patientID := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/appointments", appointmentBody(practitionerID, patientID))
	var created AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	rec = doJSON(t, router, http.MethodPost, "/appointments/"+created.ID.String()+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200", rec.Code)
	}
	var cancelled AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("decode cancelled: %v", err)
	}
	if cancelled.Status != "cancelled" || cancelled.CancelledAt == nil {
		t.Fatalf("cancelled = %+v, want status cancelled with cancelled_at set", cancelled)
	}
}

func TestListAppointmentsEndpoint(t *testing.T) {
	router, _, practitionerID, patientID := newTestRouter(t)

	for hour := 9; hour < 12; hour++ {
		body := appointmentBody(practitionerID, patientID)
		body.Time = fmt.Sprintf("%02d:00", hour)
		if rec := doJSON(t, router, http.MethodPost, "/appointments", body); rec.Code != http.StatusCreated {
			t.Fatalf("booking at %02d:00 status = %d, want 201", hour, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/appointments?patient_id="+patientID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var listed []AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("got %d appointments, want 3", len(listed))
	}

	rec = doJSON(t, router, http.MethodGet, "/appointments?patient_id=nope", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad patient_id status = %d, want 400", rec.Code)
	}
}

func windowBody(practitionerID uuid.UUID, start, end string) WindowRequest {
	return WindowRequest{
		PractitionerID:      practitionerID.String(),
		DayOfWeek:           "monday",
		StartTime:           start,
		EndTime:             end,
		SlotIntervalMinutes: 30,
	}
}

func TestWindowEndpoints(t *testing.T) {
	router, _, practitionerID, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/windows", windowBody(practitionerID, "09:00", "12:00"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var created WindowResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.Status != "active" {
		t.Fatalf("status = %q, want active", created.Status)
	}

	// Touching at the boundary counts as an overlap.
	rec = doJSON(t, router, http.MethodPost, "/windows", windowBody(practitionerID, "12:00", "14:00"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("overlap status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}
	if resp := decodeError(t, rec); resp.Error != "schedule_conflict" {
		t.Fatalf("error = %q, want schedule_conflict", resp.Error)
	}

	base := "/windows/" + created.ID.String()

	rec = doJSON(t, router, http.MethodPost, base+"/deactivate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate status = %d, want 200", rec.Code)
	}
	var deactivated WindowResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &deactivated); err != nil {
		t.Fatalf("decode deactivated: %v", err)
	}
	if deactivated.Status != "inactive" {
		t.Fatalf("status = %q, want inactive", deactivated.Status)
	}

	rec = doJSON(t, router, http.MethodDelete, base, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	rec = doJSON(t, router, http.MethodDelete, base, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestWindowEndpointValidation(t *testing.T) {
	router, _, practitionerID, _ := newTestRouter(t)

	cases := []struct {
		name    string
		body    WindowRequest
		wantErr string
	}{
		{"outside business hours", windowBody(practitionerID, "05:00", "09:00"), "invalid_window"},
		{"end before start", windowBody(practitionerID, "12:00", "09:00"), "invalid_window"},
		{"bad day", WindowRequest{
			PractitionerID: practitionerID.String(), DayOfWeek: "funday",
			StartTime: "09:00", EndTime: "12:00", SlotIntervalMinutes: 30,
		}, "invalid_request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/windows", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Error != tc.wantErr {
				t.Fatalf("error = %q, want %q", resp.Error, tc.wantErr)
			}
		})
	}
}

func TestAvailabilityEndpoints(t *testing.T) {
	router, _, practitionerID, _ := newTestRouter(t)

	if rec := doJSON(t, router, http.MethodPost, "/windows", windowBody(practitionerID, "09:00", "12:00")); rec.Code != http.StatusCreated {
		t.Fatalf("window create status = %d, want 201", rec.Code)
	}

	base := "/practitioners/" + practitionerID.String() + "/availability"

	rec := doJSON(t, router, http.MethodGet, base+"?day=monday&time=10:00", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var avail AvailabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if !avail.Available {
		t.Fatal("expected practitioner to be available monday 10:00")
	}

	rec = doJSON(t, router, http.MethodGet, base+"?day=tuesday", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if avail.Available {
		t.Fatal("expected practitioner to be unavailable tuesday")
	}

	rec = doJSON(t, router, http.MethodGet, base+"?day=someday", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad day status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/availability/practitioners?day=monday&time=10:00", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("set query status = %d, want 200", rec.Code)
	}
	var set PractitionersAvailableResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &set); err != nil {
		t.Fatalf("decode set: %v", err)
	}
	if len(set.PractitionerIDs) != 1 || set.PractitionerIDs[0] != practitionerID {
		t.Fatalf("practitioner_ids = %v, want [%s]", set.PractitionerIDs, practitionerID)
	}
}
