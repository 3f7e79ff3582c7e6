package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAppointmentApproved   Type = "appointment_approved"
	TypeAppointmentRejected   Type = "appointment_rejected"
	TypeAppointmentCompleted  Type = "appointment_completed"
	TypeAppointmentCancelled  Type = "appointment_cancelled"
	TypeEmergencyStatusUpdate Type = "emergency_status_update"
)

// Initiator records who drove an appointment transition. Cancellation
// wording depends on it.
type Initiator string

const (
	InitiatorStaff   Initiator = "staff"
	InitiatorPatient Initiator = "patient"
	InitiatorSweeper Initiator = "sweeper"
)

// Metadata is the structured form of what the message body says, so
// consumers never have to parse the sentence back apart.
type Metadata struct {
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	EmergencyID   *uuid.UUID `json:"emergency_id,omitempty"`
	Service       string     `json:"service,omitempty"`
	Date          string     `json:"date,omitempty"`
	TimeSlot      string     `json:"time_slot,omitempty"`
	EmergencyType string     `json:"emergency_type,omitempty"`
	FromStatus    string     `json:"from_status"`
	ToStatus      string     `json:"to_status"`
	Initiator     Initiator  `json:"initiator,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// Notification content is fixed at creation; only Read and ReadAt change.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	PatientID uuid.UUID  `json:"patient_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      Type       `json:"type"`
	Metadata  Metadata   `json:"metadata"`
	Read      bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// AppointmentTransition describes a committed appointment status change.
type AppointmentTransition struct {
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	Service       string
	Date          time.Time
	TimeSlot      string
	From          string
	To            string
	Initiator     Initiator
	Reason        string
}

// EmergencyTransition describes a committed emergency record status change.
type EmergencyTransition struct {
	EmergencyID   uuid.UUID
	PatientID     uuid.UUID
	EmergencyType string
	From          string
	To            string
	Resolution    string
}
