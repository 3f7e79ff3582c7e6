package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/emergency"
)

type CreateAppointmentRequest struct {
	PatientID       string `json:"patient_id"`
	Service         string `json:"service"`
	AppointmentDate string `json:"appointment_date"`
	TimeSlot        string `json:"time_slot"`
	Notes           string `json:"notes"`
}

type RejectAppointmentRequest struct {
	Reason string `json:"reason"`
}

type CompleteAppointmentRequest struct {
	Notes string `json:"notes"`
}

type CancelAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	Reason    string `json:"reason"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	Service         string    `json:"service"`
	AppointmentDate string    `json:"appointment_date"`
	TimeSlot        string    `json:"time_slot"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	StatusReason    string    `json:"status_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		Service:         a.Service,
		AppointmentDate: a.Date.Format(appointment.DateLayout),
		TimeSlot:        a.TimeSlot,
		Status:          string(a.Status),
		Notes:           a.Notes,
		StatusReason:    a.StatusReason,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type AvailabilityResponse struct {
	AppointmentDate string `json:"appointment_date"`
	TimeSlot        string `json:"time_slot"`
	Available       bool   `json:"available"`
}

type SubmitEmergencyRequest struct {
	PatientID     string   `json:"patient_id"`
	EmergencyType string   `json:"emergency_type"`
	Priority      string   `json:"priority"`
	Description   string   `json:"description"`
	PainLevel     *int     `json:"pain_level"`
	Symptoms      []string `json:"symptoms"`
	DutyRelated   bool     `json:"duty_related"`
}

type AdvanceEmergencyRequest struct {
	Status     string  `json:"status"`
	Priority   *string `json:"priority"`
	HandledBy  string  `json:"handled_by"`
	Resolution string  `json:"resolution"`
}

type EmergencyResponse struct {
	ID            uuid.UUID  `json:"id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	EmergencyType string     `json:"emergency_type"`
	Priority      string     `json:"priority"`
	Description   string     `json:"description,omitempty"`
	PainLevel     *int       `json:"pain_level,omitempty"`
	Symptoms      []string   `json:"symptoms"`
	DutyRelated   bool       `json:"duty_related"`
	HandledBy     *string    `json:"handled_by,omitempty"`
	Resolution    string     `json:"resolution,omitempty"`
	Status        string     `json:"status"`
	ReportedAt    time.Time  `json:"reported_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

func toEmergencyResponse(r *emergency.Record) EmergencyResponse {
	symptoms := r.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}
	return EmergencyResponse{
		ID:            r.ID,
		PatientID:     r.PatientID,
		EmergencyType: string(r.Type),
		Priority:      string(r.Priority),
		Description:   r.Description,
		PainLevel:     r.PainLevel,
		Symptoms:      symptoms,
		DutyRelated:   r.DutyRelated,
		HandledBy:     r.HandledBy,
		Resolution:    r.Resolution,
		Status:        string(r.Status),
		ReportedAt:    r.ReportedAt,
		ResolvedAt:    r.ResolvedAt,
	}
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

type ErrorResponse struct {
	Error         string `json:"error"`
	Details       string `json:"details,omitempty"`
	Field         string `json:"field,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
	Retryable     bool   `json:"retryable,omitempty"`
}
