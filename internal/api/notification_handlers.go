package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/notification"
)

func listNotificationsHandler(d *notification.Dispatcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := parseUUID(w, chi.URLParam(r, "patientID"), "patient_id")
		if !ok {
			return
		}
		unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

		notes, err := d.ListForPatient(r.Context(), patientID, unread)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, newList(notes))
	}
}

func markNotificationReadHandler(d *notification.Dispatcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, ok := parseUUID(w, chi.URLParam(r, "patientID"), "patient_id")
		if !ok {
			return
		}
		id, ok := parseUUID(w, chi.URLParam(r, "id"), "notification_id")
		if !ok {
			return
		}

		n, err := d.MarkRead(r.Context(), id, patientID)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}
