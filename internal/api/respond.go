package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps an error kind to the response the caller can act on.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	var ae *apperr.Error
	errors.As(err, &ae)

	switch {
	case errors.Is(err, apperr.ErrValidation):
		resp := ErrorResponse{Error: "validation_failed", Details: err.Error()}
		if ae != nil {
			resp.Field = ae.Field
		}
		writeJSON(w, http.StatusBadRequest, resp)

	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())

	case errors.Is(err, apperr.ErrStateConflict):
		current, _ := apperr.CurrentStatus(err)
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:         "state_conflict",
			Details:       err.Error(),
			CurrentStatus: current,
		})

	case errors.Is(err, apperr.ErrStorage):
		log.Error("storage failure", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     "storage_unavailable",
			Details:   "please retry",
			Retryable: true,
		})

	default:
		log.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func parseUUID(w http.ResponseWriter, raw, field string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+field, field+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
