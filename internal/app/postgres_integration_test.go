//go:build integration

package app

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/config"
	"github.com/hackgods/clinic-appointment-triage/internal/db"
	"github.com/hackgods/clinic-appointment-triage/internal/emergency"
	"github.com/hackgods/clinic-appointment-triage/internal/notification"
)

var testDSN string

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, dsn, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}
	testDSN = dsn

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "clinic_test",
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", err
	}

	host, err := c.Host(ctx)
	if err != nil {
		return c, "", err
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		return c, "", err
	}

	return c, fmt.Sprintf("postgres://test:testpass@%s:%s/clinic_test?sslmode=disable", host, port.Port()), nil
}

// newPostgresApp migrates the shared database, empties it and wires an App on top.
func newPostgresApp(t *testing.T) *App {
	t.Helper()
	ctx := context.Background()

	pool, err := db.ConnectPostgres(ctx, testDSN, 4)
	require.NoError(t, err)
	_, err = db.Migrate(ctx, pool)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE appointments, emergency_records, notifications`)
	require.NoError(t, err)
	pool.Close()

	cfg := config.Config{
		StorageDriver:      config.DriverPostgres,
		PostgresDSN:        testDSN,
		NotificationStream: "clinic:notifications",
		LockTTL:            5 * time.Second,
		SweepCutoffHour:    17,
	}
	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func tomorrow() time.Time {
	return appointment.DateOf(time.Now()).AddDate(0, 0, 1)
}

func TestMigrateIsIdempotent(t *testing.T) {
	a := newPostgresApp(t)

	applied, err := db.Migrate(context.Background(), a.PgPool)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestActiveSlotIndexMapsToConflict(t *testing.T) {
	a := newPostgresApp(t)
	repo := appointment.NewPgRepository(a.PgPool)
	ctx := context.Background()

	insert := func() error {
		_, err := repo.InsertAppointment(ctx, &appointment.Appointment{
			ID:        uuid.New(),
			PatientID: uuid.New(),
			Service:   "Dental Checkup",
			Date:      tomorrow(),
			TimeSlot:  "10:00 AM",
			Status:    appointment.StatusPending,
		})
		return err
	}

	require.NoError(t, insert())
	err := insert()
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAppointmentLifecycleOnPostgres(t *testing.T) {
	a := newPostgresApp(t)
	ctx := context.Background()
	patient := uuid.New()

	appt, err := a.Appointments.Create(ctx, appointment.CreateInput{
		PatientID: patient,
		Service:   "General Consultation",
		Date:      tomorrow(),
		TimeSlot:  "09:00 AM",
		Notes:     "first visit",
	})
	require.NoError(t, err)
	assert.Equal(t, tomorrow(), appt.Date)

	_, err = a.Appointments.Create(ctx, appointment.CreateInput{
		PatientID: uuid.New(), Service: "x", Date: tomorrow(), TimeSlot: "09:00 AM",
	})
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = a.Appointments.Reject(ctx, appt.ID, "clinician away")
	require.NoError(t, err)

	// a rejected booking frees the slot
	again, err := a.Appointments.Create(ctx, appointment.CreateInput{
		PatientID: patient, Service: "General Consultation", Date: tomorrow(), TimeSlot: "09:00 AM",
	})
	require.NoError(t, err)

	_, err = a.Appointments.Approve(ctx, again.ID)
	require.NoError(t, err)
	_, err = a.Appointments.Approve(ctx, again.ID)
	require.ErrorIs(t, err, apperr.ErrStateConflict)
	current, ok := apperr.CurrentStatus(err)
	require.True(t, ok)
	assert.Equal(t, "approved", current)

	done, err := a.Appointments.Complete(ctx, again.ID, "follow up in a week")
	require.NoError(t, err)
	assert.Equal(t, "follow up in a week", done.Notes)

	_, err = a.Appointments.Approve(ctx, uuid.New())
	require.ErrorIs(t, err, apperr.ErrNotFound)

	notes, err := a.Notifications.ListForPatient(ctx, patient, false)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, notification.TypeAppointmentCompleted, notes[0].Type)
	require.NotNil(t, notes[0].Metadata.AppointmentID)
	assert.Equal(t, again.ID, *notes[0].Metadata.AppointmentID)
	assert.Equal(t, "approved", notes[0].Metadata.FromStatus)
	assert.Equal(t, notification.TypeAppointmentRejected, notes[2].Type)

	read, err := a.Notifications.MarkRead(ctx, notes[0].ID, patient)
	require.NoError(t, err)
	assert.True(t, read.Read)
	_, err = a.Notifications.MarkRead(ctx, notes[0].ID, uuid.New())
	require.ErrorIs(t, err, apperr.ErrNotFound)

	unread, err := a.Notifications.ListForPatient(ctx, patient, true)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	mine, err := a.Appointments.ListByPatient(ctx, patient, 10, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestSweepOnPostgres(t *testing.T) {
	a := newPostgresApp(t)
	ctx := context.Background()

	appt, err := a.Appointments.Create(ctx, appointment.CreateInput{
		PatientID: uuid.New(), Service: "Physiotherapy", Date: tomorrow(), TimeSlot: "02:00 PM",
	})
	require.NoError(t, err)
	_, err = a.Appointments.Approve(ctx, appt.ID)
	require.NoError(t, err)

	res, err := a.Sweeper.Run(ctx, tomorrow().Add(18*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cancelled)

	got, err := a.Appointments.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, got.Status)
}

func TestEmergencyQueueOnPostgres(t *testing.T) {
	a := newPostgresApp(t)
	ctx := context.Background()

	submit := func(p emergency.Priority) *emergency.Record {
		pain := 7
		rec, err := a.Emergencies.Submit(ctx, emergency.Report{
			PatientID:   uuid.New(),
			Type:        emergency.TypeHeatIllness,
			Priority:    p,
			Description: "collapsed on the parade ground",
			PainLevel:   &pain,
			Symptoms:    []string{"dizziness", "nausea"},
		})
		require.NoError(t, err)
		return rec
	}

	standard := submit(emergency.PriorityStandard)
	immediate := submit(emergency.PriorityImmediate)
	urgent := submit(emergency.PriorityUrgent)

	list, err := a.Emergencies.List(ctx, emergency.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uuid.UUID{immediate.ID, urgent.ID, standard.ID},
		[]uuid.UUID{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, []string{"dizziness", "nausea"}, list[0].Symptoms)
	require.NotNil(t, list[0].PainLevel)
	assert.Equal(t, 7, *list[0].PainLevel)

	resolved, err := a.Emergencies.Advance(ctx, immediate.ID, emergency.StatusResolved, emergency.StaffFields{
		HandledBy:  "Dr. Mensah",
		Resolution: "rehydrated",
	})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = a.Emergencies.Advance(ctx, immediate.ID, emergency.StatusTriaged, emergency.StaffFields{})
	require.ErrorIs(t, err, apperr.ErrStateConflict)

	active, err := a.Emergencies.List(ctx, emergency.Filter{ExcludeResolved: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	notes, err := a.Notifications.ListForPatient(ctx, immediate.PatientID, false)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, notification.TypeEmergencyStatusUpdate, notes[0].Type)
	require.NotNil(t, notes[0].Metadata.EmergencyID)
	assert.Equal(t, immediate.ID, *notes[0].Metadata.EmergencyID)
}

func TestResolvedAtCheckConstraint(t *testing.T) {
	a := newPostgresApp(t)

	_, err := a.PgPool.Exec(context.Background(), `
		INSERT INTO emergency_records (id, patient_id, emergency_type, priority, status, resolved_at)
		VALUES ($1, $2, 'injury', 'urgent', 'triaged', now())`, uuid.New(), uuid.New())
	assert.Error(t, err)
}
