package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careloop/consultation-scheduling/internal/scheduling"
)

func createWindowHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		window, err := req.ToWindow()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		created, err := svc.CreateWindow(r.Context(), window)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWindowResponse(created))
	}
}

func updateWindowHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req WindowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		window, err := req.ToWindow()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		updated, err := svc.UpdateWindow(r.Context(), id, window)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWindowResponse(updated))
	}
}

func deleteWindowHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteWindow(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func setWindowStatusHandler(op func(r *http.Request, id uuid.UUID) (*scheduling.AvailabilityWindow, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		window, err := op(r, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWindowResponse(window))
	}
}

func listPractitionerWindowsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var day scheduling.DayOfWeek
		if raw := r.URL.Query().Get("day"); raw != "" {
			parsed, err := scheduling.ParseDayOfWeek(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_day", err.Error())
				return
			}
			day = parsed
		}

		windows, err := svc.ListWindowsForPractitioner(r.Context(), practitionerID, day)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := make([]WindowResponse, 0, len(windows))
		for i := range windows {
			resp = append(resp, toWindowResponse(&windows[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func deletePractitionerWindowsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteAllWindowsForPractitioner(r.Context(), practitionerID); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
