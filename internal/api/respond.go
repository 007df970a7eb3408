package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/careloop/consultation-scheduling/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps the engine's sentinel errors to HTTP responses.
// Validation failures are 400s, conflicts and guard violations 409s, unknown
// ids 404s; everything else is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.Is(err, scheduling.ErrInvalidAppointment):
		writeError(w, http.StatusBadRequest, "invalid_appointment", err.Error())
	case errors.Is(err, scheduling.ErrMissingVideoLink):
		writeError(w, http.StatusBadRequest, "missing_video_link", err.Error())
	case errors.Is(err, scheduling.ErrPastDate):
		writeError(w, http.StatusBadRequest, "past_date", err.Error())
	case errors.Is(err, scheduling.ErrTooFarAhead):
		writeError(w, http.StatusBadRequest, "too_far_ahead", err.Error())
	case errors.Is(err, scheduling.ErrScheduleConflict):
		writeError(w, http.StatusConflict, "schedule_conflict", err.Error())
	case errors.Is(err, scheduling.ErrDoubleBooked):
		writeError(w, http.StatusConflict, "double_booked", err.Error())
	case errors.Is(err, scheduling.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, scheduling.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "concurrent_modification", err.Error())
	case errors.Is(err, scheduling.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, "window_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
