package emergency

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	InsertEmergencyRecord(ctx context.Context, r *Record) (*Record, error)
	// UpdateEmergencyRecord writes u only while the stored status equals
	// expected, and fails with StateConflict reporting the stored status otherwise.
	UpdateEmergencyRecord(ctx context.Context, id uuid.UUID, expected Status, u Update) (*Record, error)
	ListEmergencyRecords(ctx context.Context, f Filter) ([]Record, error)
	GetEmergencyRecordByID(ctx context.Context, id uuid.UUID) (*Record, error)
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
