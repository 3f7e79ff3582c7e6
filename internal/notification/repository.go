package notification

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the notification store. Inserts made with a transaction-bound
// context commit or roll back with the status write that caused them.
type Repository interface {
	InsertNotification(ctx context.Context, n *Notification) (*Notification, error)
	// MarkNotificationRead fails with NotFound unless patientID owns the record.
	MarkNotificationRead(ctx context.Context, id, patientID uuid.UUID) (*Notification, error)
	ListNotificationsByPatient(ctx context.Context, patientID uuid.UUID, unreadOnly bool) ([]Notification, error)
}

// Publisher pushes committed notifications to live consumers. Delivery is
// best effort; the stored record is authoritative.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}
