package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all storage interactions needed by the state machine.
type Repository interface {
	// FindConflictingAppointment returns the pending or approved appointment
	// holding the pair, or nil when it is free.
	FindConflictingAppointment(ctx context.Context, date time.Time, timeSlot string) (*Appointment, error)
	// InsertAppointment fails with a Conflict when the pair is already held.
	InsertAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	// UpdateAppointmentStatus only writes when the stored status equals
	// expected, and fails with StateConflict reporting the stored status otherwise.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, expected, next Status, fields StatusFields) (*Appointment, error)
	ListApprovedAppointmentsForDate(ctx context.Context, date time.Time) ([]Appointment, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
