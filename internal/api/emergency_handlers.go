package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/emergency"
)

func submitEmergencyHandler(q *emergency.Queue, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitEmergencyRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		patientID, ok := parseUUID(w, req.PatientID, "patient_id")
		if !ok {
			return
		}

		rec, err := q.Submit(r.Context(), emergency.Report{
			PatientID:   patientID,
			Type:        emergency.Type(req.EmergencyType),
			Priority:    emergency.Priority(req.Priority),
			Description: req.Description,
			PainLevel:   req.PainLevel,
			Symptoms:    req.Symptoms,
			DutyRelated: req.DutyRelated,
		})
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, toEmergencyResponse(rec))
	}
}

func listEmergenciesHandler(q *emergency.Queue, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exclude, _ := strconv.ParseBool(r.URL.Query().Get("exclude_resolved"))

		recs, err := q.List(r.Context(), emergency.Filter{ExcludeResolved: exclude})
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		out := make([]EmergencyResponse, 0, len(recs))
		for i := range recs {
			out = append(out, toEmergencyResponse(&recs[i]))
		}
		writeJSON(w, http.StatusOK, newList(out))
	}
}

func getEmergencyHandler(q *emergency.Queue, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "emergency_id")
		if !ok {
			return
		}

		rec, err := q.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toEmergencyResponse(rec))
	}
}

func advanceEmergencyHandler(q *emergency.Queue, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "emergency_id")
		if !ok {
			return
		}
		var req AdvanceEmergencyRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		fields := emergency.StaffFields{
			HandledBy:  req.HandledBy,
			Resolution: req.Resolution,
		}
		if req.Priority != nil {
			p := emergency.Priority(*req.Priority)
			fields.Priority = &p
		}

		rec, err := q.Advance(r.Context(), id, emergency.Status(req.Status), fields)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toEmergencyResponse(rec))
	}
}
