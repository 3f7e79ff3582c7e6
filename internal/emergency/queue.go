package emergency

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/metrics"
	"github.com/hackgods/clinic-appointment-triage/internal/notification"
)

const (
	MinPainLevel = 0
	MaxPainLevel = 10

	maxDescriptionLen = 2000
	maxSymptoms       = 20
	maxResolutionLen  = 2000
)

// Queue accepts emergency reports and the staff actions that move them
// through triage.
type Queue struct {
	repo     Repository
	tx       Transactor
	notifier *notification.Dispatcher
	metrics  *metrics.Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewQueue(repo Repository, tx Transactor, notifier *notification.Dispatcher, rec *metrics.Recorder, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		repo:     repo,
		tx:       tx,
		notifier: notifier,
		metrics:  rec,
		log:      log,
		now:      time.Now,
	}
}

type Report struct {
	PatientID   uuid.UUID
	Type        Type
	Priority    Priority
	Description string
	PainLevel   *int
	Symptoms    []string
	DutyRelated bool
}

func validateReport(in Report) (Report, error) {
	if in.PatientID == uuid.Nil {
		return in, apperr.Validation("patient_id", "is required")
	}
	if !in.Type.Valid() {
		return in, apperr.Validation("emergency_type", fmt.Sprintf("unknown emergency type %q", in.Type))
	}
	if !in.Priority.Valid() {
		return in, apperr.Validation("priority", fmt.Sprintf("must be immediate, urgent or standard, got %q", in.Priority))
	}
	if in.PainLevel != nil && (*in.PainLevel < MinPainLevel || *in.PainLevel > MaxPainLevel) {
		return in, apperr.Validation("pain_level", fmt.Sprintf("must be between %d and %d", MinPainLevel, MaxPainLevel))
	}

	in.Description = strings.TrimSpace(in.Description)
	if len(in.Description) > maxDescriptionLen {
		return in, apperr.Validation("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLen))
	}

	symptoms := make([]string, 0, len(in.Symptoms))
	for _, s := range in.Symptoms {
		if s = strings.TrimSpace(s); s != "" {
			symptoms = append(symptoms, s)
		}
	}
	if len(symptoms) > maxSymptoms {
		return in, apperr.Validation("symptoms", fmt.Sprintf("at most %d symptoms", maxSymptoms))
	}
	in.Symptoms = symptoms

	return in, nil
}

// Submit records a new emergency in reported status.
func (q *Queue) Submit(ctx context.Context, in Report) (*Record, error) {
	in, err := validateReport(in)
	if err != nil {
		return nil, err
	}

	now := q.now().UTC()
	rec, err := q.repo.InsertEmergencyRecord(ctx, &Record{
		ID:          uuid.New(),
		PatientID:   in.PatientID,
		Type:        in.Type,
		Priority:    in.Priority,
		Description: in.Description,
		PainLevel:   in.PainLevel,
		Symptoms:    in.Symptoms,
		DutyRelated: in.DutyRelated,
		Status:      StatusReported,
		ReportedAt:  now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, apperr.Storage("insert emergency record", err)
	}

	q.log.Info("emergency reported",
		zap.String("emergency_id", rec.ID.String()),
		zap.String("patient_id", rec.PatientID.String()),
		zap.String("emergency_type", string(rec.Type)),
		zap.String("priority", string(rec.Priority)))

	return rec, nil
}

// StaffFields are the optional values a triage step may set alongside the
// new status.
type StaffFields struct {
	Priority   *Priority
	HandledBy  string
	Resolution string
}

// Advance moves a record forward to next. resolved_at is stamped exactly when
// next is resolved. The owning patient is notified in the same transaction.
func (q *Queue) Advance(ctx context.Context, id uuid.UUID, next Status, f StaffFields) (*Record, error) {
	if !next.Valid() {
		return nil, apperr.Validation("status", fmt.Sprintf("unknown emergency status %q", next))
	}
	if f.Priority != nil && !f.Priority.Valid() {
		return nil, apperr.Validation("priority", fmt.Sprintf("must be immediate, urgent or standard, got %q", *f.Priority))
	}

	u := Update{Status: next, Priority: f.Priority}
	if h := strings.TrimSpace(f.HandledBy); h != "" {
		u.HandledBy = &h
	}
	if r := strings.TrimSpace(f.Resolution); r != "" {
		if len(r) > maxResolutionLen {
			return nil, apperr.Validation("resolution", fmt.Sprintf("must be at most %d characters", maxResolutionLen))
		}
		u.Resolution = &r
	}
	if next == StatusResolved {
		at := q.now().UTC()
		u.ResolvedAt = &at
	}

	var (
		updated *Record
		from    Status
		note    *notification.Notification
	)

	err := q.tx.WithinTx(ctx, func(txCtx context.Context) error {
		current, err := q.repo.GetEmergencyRecordByID(txCtx, id)
		if err != nil {
			return apperr.Storage("load emergency record", err)
		}
		if !current.Status.CanAdvance(next) {
			return apperr.StateConflict("emergency", id.String(), "a status after "+string(current.Status), string(current.Status))
		}
		from = current.Status

		updated, err = q.repo.UpdateEmergencyRecord(txCtx, id, current.Status, u)
		if err != nil {
			return apperr.Storage("update emergency record", err)
		}

		note, err = q.notifier.OnEmergencyTransition(txCtx, notification.EmergencyTransition{
			EmergencyID:   updated.ID,
			PatientID:     updated.PatientID,
			EmergencyType: string(updated.Type),
			From:          string(from),
			To:            string(updated.Status),
			Resolution:    updated.Resolution,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	q.notifier.Publish(ctx, note)
	q.metrics.Transition("emergency", string(from), string(updated.Status))
	q.log.Info("emergency advanced",
		zap.String("emergency_id", updated.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.String("priority", string(updated.Priority)))

	return updated, nil
}

// List returns records in service order: immediate before urgent before
// standard, then earliest reported first.
func (q *Queue) List(ctx context.Context, f Filter) ([]Record, error) {
	out, err := q.repo.ListEmergencyRecords(ctx, f)
	if err != nil {
		return nil, apperr.Storage("list emergency records", err)
	}
	SortQueue(out)
	return out, nil
}

func SortQueue(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		if d := a.Priority.rank() - b.Priority.rank(); d != 0 {
			return d
		}
		return a.ReportedAt.Compare(b.ReportedAt)
	})
}

func (q *Queue) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := q.repo.GetEmergencyRecordByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get emergency record", err)
	}
	return rec, nil
}
