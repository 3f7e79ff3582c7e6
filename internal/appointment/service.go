package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/metrics"
	"github.com/hackgods/clinic-appointment-triage/internal/notification"
	redisclient "github.com/hackgods/clinic-appointment-triage/internal/redis"
)

const (
	maxServiceLen = 200
	maxNotesLen   = 2000

	defaultListLimit = 20
	maxListLimit     = 100
)

// Deps are the collaborators of the appointment state machine. Clock returns
// the clinic's local wall-clock time.
type Deps struct {
	Repo     Repository
	Tx       Transactor
	Locker   redisclient.Locker
	Notifier *notification.Dispatcher
	Metrics  *metrics.Recorder
	Log      *zap.Logger
	Clock    func() time.Time
}

// Service owns every appointment status change.
type Service struct {
	repo     Repository
	tx       Transactor
	checker  *ConflictChecker
	locker   redisclient.Locker
	notifier *notification.Dispatcher
	metrics  *metrics.Recorder
	log      *zap.Logger
	clock    func() time.Time
}

func NewService(d Deps) *Service {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Locker == nil {
		d.Locker = redisclient.NewLocalLocker()
	}
	return &Service{
		repo:     d.Repo,
		tx:       d.Tx,
		checker:  NewConflictChecker(d.Repo),
		locker:   d.Locker,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		log:      d.Log,
		clock:    d.Clock,
	}
}

type CreateInput struct {
	PatientID uuid.UUID
	Service   string
	Date      time.Time
	TimeSlot  string
	Notes     string
}

func (s *Service) validateSlot(date time.Time, timeSlot string) error {
	if date.IsZero() {
		return apperr.Validation("appointment_date", "is required")
	}
	if !ValidTimeSlot(timeSlot) {
		return apperr.Validation("time_slot", fmt.Sprintf("unknown time slot %q", timeSlot))
	}
	return nil
}

func (s *Service) validateCreate(in CreateInput) (CreateInput, error) {
	in.Service = strings.TrimSpace(in.Service)
	in.Notes = strings.TrimSpace(in.Notes)

	if in.PatientID == uuid.Nil {
		return in, apperr.Validation("patient_id", "is required")
	}
	if in.Service == "" {
		return in, apperr.Validation("service", "is required")
	}
	if len(in.Service) > maxServiceLen {
		return in, apperr.Validation("service", fmt.Sprintf("must be at most %d characters", maxServiceLen))
	}
	if len(in.Notes) > maxNotesLen {
		return in, apperr.Validation("notes", fmt.Sprintf("must be at most %d characters", maxNotesLen))
	}
	if err := s.validateSlot(in.Date, in.TimeSlot); err != nil {
		return in, err
	}

	in.Date = DateOf(in.Date)
	if in.Date.Before(DateOf(s.clock())) {
		return in, apperr.Validation("appointment_date", "cannot book a date in the past")
	}
	return in, nil
}

// CheckAvailability reports whether the pair can currently be booked.
func (s *Service) CheckAvailability(ctx context.Context, date time.Time, timeSlot string) (bool, error) {
	if err := s.validateSlot(date, timeSlot); err != nil {
		return false, err
	}
	return s.checker.CheckAvailable(ctx, date, timeSlot)
}

// Create books a pending appointment. The slot lock keeps concurrent requests
// for the same pair out of the check-then-insert window; the storage layer
// rejects whatever slips past it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	in, err := s.validateCreate(in)
	if err != nil {
		return nil, err
	}

	var created *Appointment
	key := redisclient.SlotLockKey(in.Date, in.TimeSlot)

	err = s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		available, err := s.checker.CheckAvailable(lockCtx, in.Date, in.TimeSlot)
		if err != nil {
			return err
		}
		if !available {
			return apperr.Conflict(fmt.Sprintf("%s %s is already booked", in.Date.Format(DateLayout), in.TimeSlot))
		}

		now := time.Now().UTC()
		appt, err := s.repo.InsertAppointment(lockCtx, &Appointment{
			ID:        uuid.New(),
			PatientID: in.PatientID,
			Service:   in.Service,
			Date:      in.Date,
			TimeSlot:  in.TimeSlot,
			Status:    StatusPending,
			Notes:     in.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return apperr.Storage("insert appointment", err)
		}
		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = apperr.Conflict(fmt.Sprintf("%s %s is being booked by another request", in.Date.Format(DateLayout), in.TimeSlot))
		}
		if errors.Is(err, apperr.ErrConflict) {
			s.metrics.BookingConflict()
			s.log.Info("booking rejected, slot unavailable",
				zap.String("patient_id", in.PatientID.String()),
				zap.String("appointment_date", in.Date.Format(DateLayout)),
				zap.String("time_slot", in.TimeSlot))
			return nil, err
		}
		return nil, apperr.Storage("acquire slot lock", err)
	}

	s.log.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("patient_id", created.PatientID.String()),
		zap.String("appointment_date", created.Date.Format(DateLayout)),
		zap.String("time_slot", created.TimeSlot))

	return created, nil
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, ActionApprove, notification.InitiatorStaff, StatusFields{}, "", nil)
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, id, ActionReject, notification.InitiatorStaff, StatusFields{Reason: &reason}, reason, nil)
}

// Complete closes an approved appointment. Non-empty notes replace the stored notes.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	var fields StatusFields
	if notes = strings.TrimSpace(notes); notes != "" {
		if len(notes) > maxNotesLen {
			return nil, apperr.Validation("notes", fmt.Sprintf("must be at most %d characters", maxNotesLen))
		}
		fields.Notes = &notes
	}
	return s.transition(ctx, id, ActionComplete, notification.InitiatorStaff, fields, "", nil)
}

// PatientCancel cancels a pending or approved appointment on behalf of its
// owner. Other patients get NotFound.
func (s *Service) PatientCancel(ctx context.Context, id, patientID uuid.UUID, reason string) (*Appointment, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id", "is required")
	}
	reason = strings.TrimSpace(reason)

	owner := func(a *Appointment) error {
		if a.PatientID != patientID {
			return apperr.NotFound("appointment", id.String())
		}
		return nil
	}
	return s.transition(ctx, id, ActionPatientCancel, notification.InitiatorPatient, StatusFields{Reason: &reason}, reason, owner)
}

const sweepReason = "not completed by end of clinic day"

// SweepCancel force-cancels an approved appointment dated on now's calendar
// day once now has reached cutoffHour.
func (s *Service) SweepCancel(ctx context.Context, id uuid.UUID, now time.Time, cutoffHour int) (*Appointment, error) {
	due := func(a *Appointment) error {
		if !a.Date.Equal(DateOf(now)) {
			return apperr.Validation("appointment_date",
				fmt.Sprintf("%s is not the clinic day %s", a.Date.Format(DateLayout), DateOf(now).Format(DateLayout)))
		}
		if now.Hour() < cutoffHour {
			return apperr.Validation("cutoff", fmt.Sprintf("clinic day closes at %02d:00", cutoffHour))
		}
		return nil
	}
	reason := sweepReason
	return s.transition(ctx, id, ActionSweepCancel, notification.InitiatorSweeper, StatusFields{Reason: &reason}, "", due)
}

// transition moves id through action. The status write and its notification
// commit in one transaction; the notification is published after commit.
func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	action Action,
	by notification.Initiator,
	fields StatusFields,
	reason string,
	guard func(*Appointment) error,
) (*Appointment, error) {
	var (
		updated *Appointment
		from    Status
		note    *notification.Notification
	)

	err := s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetAppointmentByID(txCtx, id)
		if err != nil {
			return apperr.Storage("load appointment", err)
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return err
			}
		}

		next, ok := Next(action, current.Status)
		if !ok {
			return apperr.StateConflict("appointment", id.String(), expectedFrom(action), string(current.Status))
		}
		from = current.Status

		updated, err = s.repo.UpdateAppointmentStatus(txCtx, id, current.Status, next, fields)
		if err != nil {
			return apperr.Storage("update appointment status", err)
		}

		note, err = s.notifier.OnAppointmentTransition(txCtx, notification.AppointmentTransition{
			AppointmentID: updated.ID,
			PatientID:     updated.PatientID,
			Service:       updated.Service,
			Date:          updated.Date,
			TimeSlot:      updated.TimeSlot,
			From:          string(from),
			To:            string(updated.Status),
			Initiator:     by,
			Reason:        reason,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrStateConflict) {
			actual, _ := apperr.CurrentStatus(err)
			s.log.Info("appointment transition refused",
				zap.String("appointment_id", id.String()),
				zap.String("action", string(action)),
				zap.String("current_status", actual))
		}
		return nil, err
	}

	s.notifier.Publish(ctx, note)
	s.metrics.Transition("appointment", string(from), string(updated.Status))
	s.log.Info("appointment transitioned",
		zap.String("appointment_id", updated.ID.String()),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)))

	return updated, nil
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, apperr.Storage("get appointment", err)
	}
	return a, nil
}

// ListByPatient returns a patient's appointments, newest booking first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id", "is required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	out, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, apperr.Storage("list appointments by patient", err)
	}
	return out, nil
}
