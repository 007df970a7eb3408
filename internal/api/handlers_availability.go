package api

import (
	"net/http"

	"github.com/careloop/consultation-scheduling/internal/scheduling"
)

// parseAvailabilityQuery reads the day (required) and time (optional) query
// parameters shared by the availability endpoints.
func parseAvailabilityQuery(w http.ResponseWriter, r *http.Request) (scheduling.DayOfWeek, scheduling.TimeOfDay, bool) {
	day, err := scheduling.ParseDayOfWeek(r.URL.Query().Get("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_day", err.Error())
		return "", scheduling.NoTime, false
	}

	t := scheduling.NoTime
	if raw := r.URL.Query().Get("time"); raw != "" {
		parsed, err := scheduling.ParseTimeOfDay(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
			return "", scheduling.NoTime, false
		}
		t = parsed
	}
	return day, t, true
}

func practitionerAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		day, t, ok := parseAvailabilityQuery(w, r)
		if !ok {
			return
		}

		available, err := svc.IsPractitionerAvailable(r.Context(), practitionerID, day, t)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := AvailabilityResponse{
			PractitionerID: practitionerID,
			Day:            string(day),
			Available:      available,
		}
		if t.IsSet() {
			resp.Time = t.String()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func practitionersAvailableHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, t, ok := parseAvailabilityQuery(w, r)
		if !ok {
			return
		}

		ids, err := svc.PractitionersAvailable(r.Context(), day, t)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		resp := PractitionersAvailableResponse{
			Day:             string(day),
			PractitionerIDs: ids,
		}
		if t.IsSet() {
			resp.Time = t.String()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
