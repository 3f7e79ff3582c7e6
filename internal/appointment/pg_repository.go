package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/db"
)

const activeSlotIndex = "appointments_active_slot_uniq"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const appointmentCols = `id, patient_id, service, appointment_date, time_slot, status, notes, status_reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.Service,
		&a.Date,
		&a.TimeSlot,
		&a.Status,
		&a.Notes,
		&a.StatusReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Date = DateOf(a.Date)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) FindConflictingAppointment(ctx context.Context, date time.Time, timeSlot string) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE appointment_date = $1
		  AND time_slot = $2
		  AND status IN ('pending', 'approved')
		LIMIT 1
	`, DateOf(date), timeSlot)

	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Storage("find conflicting appointment", err)
	}
	return a, nil
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, service, appointment_date, time_slot, status, notes, status_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '', now(), now())
		RETURNING `+appointmentCols,
		a.ID, a.PatientID, a.Service, DateOf(a.Date), a.TimeSlot, a.Status, a.Notes)

	saved, err := scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err, activeSlotIndex) {
			return nil, apperr.Conflict(fmt.Sprintf("%s %s is already booked", DateOf(a.Date).Format(DateLayout), a.TimeSlot))
		}
		return nil, apperr.Storage("insert appointment", err)
	}
	return saved, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, expected, next Status, fields StatusFields) (*Appointment, error) {
	q := db.Conn(ctx, r.pool)

	row := q.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    notes = COALESCE($4, notes),
		    status_reason = COALESCE($5, status_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+appointmentCols,
		id, expected, next, fields.Notes, fields.Reason)

	a, err := scanAppointment(row)
	if err == nil {
		return a, nil
	}
	if db.IsUniqueViolation(err, activeSlotIndex) {
		return nil, apperr.Conflict("time slot is held by another appointment")
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Storage("update appointment status", err)
	}

	// Lost the race or never existed: report what is stored now.
	var actual Status
	err = q.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, id).Scan(&actual)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("appointment", id.String())
		}
		return nil, apperr.Storage("read appointment status", err)
	}
	return nil, apperr.StateConflict("appointment", id.String(), string(expected), string(actual))
}

func (r *PgRepository) ListApprovedAppointmentsForDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE appointment_date = $1
		  AND status = 'approved'
		ORDER BY created_at, id
	`, DateOf(date))
	if err != nil {
		return nil, apperr.Storage("list approved appointments", err)
	}

	out, err := collectAppointments(rows)
	if err != nil {
		return nil, apperr.Storage("list approved appointments", err)
	}
	return out, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE id = $1
	`, id)

	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("appointment", id.String())
		}
		return nil, apperr.Storage("get appointment", err)
	}
	return a, nil
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list appointments by patient", err)
	}

	out, err := collectAppointments(rows)
	if err != nil {
		return nil, apperr.Storage("list appointments by patient", err)
	}
	return out, nil
}
