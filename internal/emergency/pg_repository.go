package emergency

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const recordCols = `id, patient_id, emergency_type, priority, description, pain_level, symptoms,
	duty_related, handled_by, resolution, status, reported_at, resolved_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var pain *int16

	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.Type,
		&r.Priority,
		&r.Description,
		&pain,
		&r.Symptoms,
		&r.DutyRelated,
		&r.HandledBy,
		&r.Resolution,
		&r.Status,
		&r.ReportedAt,
		&r.ResolvedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pain != nil {
		p := int(*pain)
		r.PainLevel = &p
	}
	return &r, nil
}

func (p *PgRepository) InsertEmergencyRecord(ctx context.Context, r *Record) (*Record, error) {
	var pain *int16
	if r.PainLevel != nil {
		v := int16(*r.PainLevel)
		pain = &v
	}
	symptoms := r.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}

	row := db.Conn(ctx, p.pool).QueryRow(ctx, `
		INSERT INTO emergency_records (id, patient_id, emergency_type, priority, description, pain_level,
			symptoms, duty_related, status, reported_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING `+recordCols,
		r.ID, r.PatientID, r.Type, r.Priority, r.Description, pain,
		symptoms, r.DutyRelated, r.Status, r.ReportedAt)

	saved, err := scanRecord(row)
	if err != nil {
		return nil, apperr.Storage("insert emergency record", err)
	}
	return saved, nil
}

func (p *PgRepository) UpdateEmergencyRecord(ctx context.Context, id uuid.UUID, expected Status, u Update) (*Record, error) {
	q := db.Conn(ctx, p.pool)

	row := q.QueryRow(ctx, `
		UPDATE emergency_records
		SET status = $3,
		    priority = COALESCE($4, priority),
		    handled_by = COALESCE($5, handled_by),
		    resolution = COALESCE($6, resolution),
		    resolved_at = $7,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
		RETURNING `+recordCols,
		id, expected, u.Status, u.Priority, u.HandledBy, u.Resolution, u.ResolvedAt)

	r, err := scanRecord(row)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Storage("update emergency record", err)
	}

	var actual Status
	err = q.QueryRow(ctx, `SELECT status FROM emergency_records WHERE id = $1`, id).Scan(&actual)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("emergency", id.String())
		}
		return nil, apperr.Storage("read emergency status", err)
	}
	return nil, apperr.StateConflict("emergency", id.String(), string(expected), string(actual))
}

func (p *PgRepository) ListEmergencyRecords(ctx context.Context, f Filter) ([]Record, error) {
	rows, err := db.Conn(ctx, p.pool).Query(ctx, `
		SELECT `+recordCols+`
		FROM emergency_records
		WHERE ($1 = false OR status <> 'resolved')
		ORDER BY CASE priority
		           WHEN 'immediate' THEN 0
		           WHEN 'urgent' THEN 1
		           ELSE 2
		         END,
		         reported_at, id
	`, f.ExcludeResolved)
	if err != nil {
		return nil, apperr.Storage("list emergency records", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, apperr.Storage("scan emergency record", err)
		}
		result = append(result, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list emergency records", err)
	}
	return result, nil
}

func (p *PgRepository) GetEmergencyRecordByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := db.Conn(ctx, p.pool).QueryRow(ctx, `
		SELECT `+recordCols+`
		FROM emergency_records
		WHERE id = $1
	`, id)

	r, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("emergency", id.String())
		}
		return nil, apperr.Storage("get emergency record", err)
	}
	return r, nil
}
