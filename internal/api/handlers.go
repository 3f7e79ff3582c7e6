package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
)

func availabilityHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := appointment.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		slot := r.URL.Query().Get("time_slot")

		ok, err := svc.CheckAvailability(r.Context(), date, slot)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			AppointmentDate: date.Format(appointment.DateLayout),
			TimeSlot:        slot,
			Available:       ok,
		})
	}
}

func slotsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newList(appointment.TimeSlots))
	}
}

func createAppointmentHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		patientID, ok := parseUUID(w, req.PatientID, "patient_id")
		if !ok {
			return
		}

		date, err := appointment.ParseDate(req.AppointmentDate)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		appt, err := svc.Create(r.Context(), appointment.CreateInput{
			PatientID: patientID,
			Service:   req.Service,
			Date:      date,
			TimeSlot:  req.TimeSlot,
			Notes:     req.Notes,
		})
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		patientID, ok := parseUUID(w, q.Get("patient_id"), "patient_id")
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		appts, err := svc.ListByPatient(r.Context(), patientID, limit, offset)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, newList(out))
	}
}

func getAppointmentHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "appointment_id")
		if !ok {
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func approveAppointmentHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "appointment_id")
		if !ok {
			return
		}

		appt, err := svc.Approve(r.Context(), id)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rejectAppointmentHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "appointment_id")
		if !ok {
			return
		}
		var req RejectAppointmentRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.Reject(r.Context(), id, req.Reason)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "appointment_id")
		if !ok {
			return
		}
		var req CompleteAppointmentRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		appt, err := svc.Complete(r.Context(), id, req.Notes)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "appointment_id")
		if !ok {
			return
		}
		var req CancelAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		patientID, ok := parseUUID(w, req.PatientID, "patient_id")
		if !ok {
			return
		}

		appt, err := svc.PatientCancel(r.Context(), id, patientID, req.Reason)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}
