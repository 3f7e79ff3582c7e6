package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/metrics"
)

// Dispatcher is the only writer of notification records. It turns each
// status transition into exactly one notification.
type Dispatcher struct {
	repo      Repository
	publisher Publisher
	metrics   *metrics.Recorder
	log       *zap.Logger
	now       func() time.Time
}

func NewDispatcher(repo Repository, publisher Publisher, rec *metrics.Recorder, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		repo:      repo,
		publisher: publisher,
		metrics:   rec,
		log:       log,
		now:       time.Now,
	}
}

// OnAppointmentTransition writes the notification for an appointment status
// change. Call it with the same context as the status write so both commit
// together, then hand the result to Publish after commit.
func (d *Dispatcher) OnAppointmentTransition(ctx context.Context, t AppointmentTransition) (*Notification, error) {
	r, ok := renderAppointment(t)
	if !ok {
		return nil, apperr.Validation("transition",
			fmt.Sprintf("no notification defined for appointment %s -> %s (%s)", t.From, t.To, t.Initiator))
	}

	apptID := t.AppointmentID
	meta := Metadata{
		AppointmentID: &apptID,
		Service:       t.Service,
		Date:          t.Date.Format(dateLayout),
		TimeSlot:      t.TimeSlot,
		FromStatus:    t.From,
		ToStatus:      t.To,
		Initiator:     t.Initiator,
		Reason:        t.Reason,
	}

	return d.insert(ctx, t.PatientID, r, meta)
}

// OnEmergencyTransition writes the notification for an emergency record status change.
func (d *Dispatcher) OnEmergencyTransition(ctx context.Context, t EmergencyTransition) (*Notification, error) {
	r, ok := renderEmergency(t)
	if !ok {
		return nil, apperr.Validation("status", fmt.Sprintf("no notification defined for emergency status %q", t.To))
	}

	emID := t.EmergencyID
	meta := Metadata{
		EmergencyID:   &emID,
		EmergencyType: t.EmergencyType,
		FromStatus:    t.From,
		ToStatus:      t.To,
		Reason:        t.Resolution,
	}

	return d.insert(ctx, t.PatientID, r, meta)
}

func (d *Dispatcher) insert(ctx context.Context, patientID uuid.UUID, r rendered, meta Metadata) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		PatientID: patientID,
		Title:     r.title,
		Message:   r.body,
		Type:      r.kind,
		Metadata:  meta,
		CreatedAt: d.now(),
	}

	saved, err := d.repo.InsertNotification(ctx, n)
	if err != nil {
		return nil, apperr.Storage("insert notification", err)
	}
	return saved, nil
}

// Publish forwards committed notifications to the live publisher, if any.
// Failures are logged and otherwise ignored.
func (d *Dispatcher) Publish(ctx context.Context, notes ...*Notification) {
	for _, n := range notes {
		if n == nil {
			continue
		}
		d.metrics.NotificationCreated(string(n.Type))

		if d.publisher == nil {
			continue
		}
		if err := d.publisher.Publish(ctx, *n); err != nil {
			d.log.Warn("publish notification failed",
				zap.String("notification_id", n.ID.String()),
				zap.String("patient_id", n.PatientID.String()),
				zap.Error(err))
		}
	}
}

// ListForPatient returns a patient's notifications, newest first.
func (d *Dispatcher) ListForPatient(ctx context.Context, patientID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id", "is required")
	}
	out, err := d.repo.ListNotificationsByPatient(ctx, patientID, unreadOnly)
	if err != nil {
		return nil, apperr.Storage("list notifications", err)
	}
	return out, nil
}

// MarkRead flips the read flag. Only the owning patient may do so; marking an
// already read notification returns it unchanged.
func (d *Dispatcher) MarkRead(ctx context.Context, id, patientID uuid.UUID) (*Notification, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id", "is required")
	}
	n, err := d.repo.MarkNotificationRead(ctx, id, patientID)
	if err != nil {
		return nil, apperr.Storage("mark notification read", err)
	}
	return n, nil
}
