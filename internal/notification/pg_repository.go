package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

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

const notificationCols = `id, patient_id, title, message, type, metadata, is_read, created_at, read_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	var meta []byte

	err := row.Scan(
		&n.ID,
		&n.PatientID,
		&n.Title,
		&n.Message,
		&n.Type,
		&meta,
		&n.Read,
		&n.CreatedAt,
		&n.ReadAt,
	)
	if err != nil {
		return nil, err
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Metadata); err != nil {
			return nil, fmt.Errorf("decode notification metadata: %w", err)
		}
	}
	return &n, nil
}

func (r *PgRepository) InsertNotification(ctx context.Context, n *Notification) (*Notification, error) {
	meta, err := json.Marshal(n.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode notification metadata: %w", err)
	}

	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO notifications (id, patient_id, title, message, type, metadata, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, $7)
		RETURNING `+notificationCols,
		n.ID, n.PatientID, n.Title, n.Message, n.Type, meta, n.CreatedAt)

	saved, err := scanNotification(row)
	if err != nil {
		return nil, apperr.Storage("insert notification", err)
	}
	return saved, nil
}

func (r *PgRepository) MarkNotificationRead(ctx context.Context, id, patientID uuid.UUID) (*Notification, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE notifications
		SET is_read = true,
		    read_at = COALESCE(read_at, now())
		WHERE id = $1
		  AND patient_id = $2
		RETURNING `+notificationCols,
		id, patientID)

	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("notification", id.String())
		}
		return nil, apperr.Storage("mark notification read", err)
	}
	return n, nil
}

func (r *PgRepository) ListNotificationsByPatient(ctx context.Context, patientID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+notificationCols+`
		FROM notifications
		WHERE patient_id = $1
		  AND ($2 = false OR is_read = false)
		ORDER BY created_at DESC, id
	`, patientID, unreadOnly)
	if err != nil {
		return nil, apperr.Storage("list notifications", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, apperr.Storage("scan notification", err)
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list notifications", err)
	}
	return result, nil
}
