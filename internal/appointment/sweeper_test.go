package appointment_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/notification"
	redisclient "github.com/hackgods/clinic-appointment-triage/internal/redis"
)

const cutoffHour = 17

func (h *harness) approved(t *testing.T, slot string) *appointment.Appointment {
	t.Helper()
	a := h.book(t, slot)
	_, err := h.svc.Approve(context.Background(), a.ID)
	require.NoError(t, err)
	return a
}

func cancellations(notes []notification.Notification) int {
	n := 0
	for _, note := range notes {
		if note.Type == notification.TypeAppointmentCancelled {
			n++
		}
	}
	return n
}

func TestSweepBeforeCutoffIsNoop(t *testing.T) {
	h := newHarness(t)
	a := h.approved(t, "09:00 AM")
	sw := appointment.NewSweeper(h.svc, nil, cutoffHour)

	res, err := sw.Run(context.Background(), clinicDay.Add(16*time.Hour+59*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, appointment.SweepResult{Date: clinicDay}, res)

	got, err := h.svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusApproved, got.Status)
}

func TestSweepTwiceCancelsOnce(t *testing.T) {
	h := newHarness(t)
	a := h.approved(t, "09:00 AM")
	sw := appointment.NewSweeper(h.svc, nil, cutoffHour)
	at := clinicDay.Add(17*time.Hour + 5*time.Minute)

	first, err := sw.Run(context.Background(), at)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Considered)
	assert.Equal(t, 1, first.Cancelled)

	second, err := sw.Run(context.Background(), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Considered)
	assert.Equal(t, 0, second.Cancelled)

	got, err := h.svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, got.Status)

	notes := h.notes(t, a.PatientID)
	assert.Equal(t, 1, cancellations(notes))
	assert.Equal(t, "Appointment Cancelled", notes[0].Title)
	assert.Contains(t, notes[0].Message, "end of the day")
	assert.Equal(t, notification.InitiatorSweeper, notes[0].Metadata.Initiator)
}

func TestSweepLeavesOtherStatusesAndDaysAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pending := h.book(t, "08:00 AM")
	completed := h.approved(t, "10:00 AM")
	_, err := h.svc.Complete(ctx, completed.ID, "")
	require.NoError(t, err)

	tomorrow, err := h.svc.Create(ctx, appointment.CreateInput{
		PatientID: uuid.New(), Service: "x", Date: clinicDay.AddDate(0, 0, 1), TimeSlot: "09:00 AM",
	})
	require.NoError(t, err)
	_, err = h.svc.Approve(ctx, tomorrow.ID)
	require.NoError(t, err)

	res, err := appointment.NewSweeper(h.svc, nil, cutoffHour).Run(ctx, clinicDay.Add(18*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Considered)

	for id, want := range map[uuid.UUID]appointment.Status{
		pending.ID:   appointment.StatusPending,
		completed.ID: appointment.StatusCompleted,
		tomorrow.ID:  appointment.StatusApproved,
	} {
		got, err := h.svc.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
}

func TestSweepContinuesPastFailures(t *testing.T) {
	failing := &failingRepo{updateErr: map[uuid.UUID]error{}}
	h := newHarness(t, withRepo(func(r appointment.Repository) appointment.Repository {
		failing.Repository = r
		return failing
	}))

	a := h.approved(t, "09:00 AM")
	b := h.approved(t, "10:00 AM")
	c := h.approved(t, "11:00 AM")
	failing.updateErr[b.ID] = errors.New("deadlock detected")

	res, err := appointment.NewSweeper(h.svc, nil, cutoffHour).Run(context.Background(), clinicDay.Add(17*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Considered)
	assert.Equal(t, 2, res.Cancelled)
	assert.Equal(t, 1, res.Failed)

	for id, want := range map[uuid.UUID]appointment.Status{
		a.ID: appointment.StatusCancelled,
		b.ID: appointment.StatusApproved,
		c.ID: appointment.StatusCancelled,
	} {
		got, err := h.svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
	assert.Equal(t, 0, cancellations(h.notes(t, b.PatientID)))
}

type staleListing struct {
	appointment.Repository
	snapshot []appointment.Appointment
}

func (s *staleListing) ListApprovedAppointmentsForDate(context.Context, time.Time) ([]appointment.Appointment, error) {
	return s.snapshot, nil
}

func TestSweepSkipsAppointmentsThatMovedOn(t *testing.T) {
	stale := &staleListing{}
	h := newHarness(t, withRepo(func(r appointment.Repository) appointment.Repository {
		stale.Repository = r
		return stale
	}))
	ctx := context.Background()
	a := h.approved(t, "09:00 AM")

	snap, err := h.store.ListApprovedAppointmentsForDate(ctx, clinicDay)
	require.NoError(t, err)
	stale.snapshot = snap

	// staff completes it between the listing and the cancel
	_, err = h.svc.Complete(ctx, a.ID, "")
	require.NoError(t, err)

	res, err := appointment.NewSweeper(h.svc, nil, cutoffHour).Run(ctx, clinicDay.Add(17*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Considered)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Cancelled)

	got, err := h.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCompleted, got.Status)
	assert.Equal(t, 0, cancellations(h.notes(t, a.PatientID)))
}

func TestSweepCancelGuardsDayAndCutoff(t *testing.T) {
	h := newHarness(t)
	a := h.approved(t, "09:00 AM")

	_, err := h.svc.SweepCancel(context.Background(), a.ID, clinicDay.Add(12*time.Hour), cutoffHour)
	assert.Error(t, err)

	_, err = h.svc.SweepCancel(context.Background(), a.ID, clinicDay.AddDate(0, 0, 1).Add(18*time.Hour), cutoffHour)
	assert.Error(t, err)

	got, err := h.svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusApproved, got.Status)
}

func TestSweepRefusesWhileAnotherRunHoldsTheDay(t *testing.T) {
	h := newHarness(t)
	h.approved(t, "09:00 AM")
	locker := redisclient.NewLocalLocker()
	sw := appointment.NewSweeper(h.svc, locker, cutoffHour)
	at := clinicDay.Add(17 * time.Hour)

	err := locker.WithLock(context.Background(), redisclient.SweepLockKey(clinicDay), func(ctx context.Context) error {
		_, err := sw.Run(ctx, at)
		return err
	})
	assert.ErrorIs(t, err, appointment.ErrSweepInProgress)
}

func TestSweepCancelFromPendingIsStateConflict(t *testing.T) {
	h := newHarness(t)
	a := h.book(t, "09:00 AM")

	_, err := h.svc.SweepCancel(context.Background(), a.ID, clinicDay.Add(18*time.Hour), cutoffHour)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestSweepMetrics(t *testing.T) {
	h := newHarness(t)
	h.approved(t, "09:00 AM")
	h.approved(t, "10:00 AM")

	_, err := appointment.NewSweeper(h.svc, nil, cutoffHour).Run(context.Background(), clinicDay.Add(17*time.Hour))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "clinic_sweep_cancelled_total 2")
	assert.Contains(t, rec.Body.String(), `clinic_transitions_total{entity="appointment",from="approved",to="cancelled"} 2`)
}
