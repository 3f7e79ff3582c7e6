package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/config"
)

func memoryConfig() config.Config {
	return config.Config{
		StorageDriver:      config.DriverMemory,
		NotificationStream: "clinic:notifications",
		LockTTL:            5 * time.Second,
		SweepCutoffHour:    17,
	}
}

func book(t *testing.T, a *App) *appointment.Appointment {
	t.Helper()
	appt, err := a.Appointments.Create(context.Background(), appointment.CreateInput{
		PatientID: uuid.New(),
		Service:   "General Consultation",
		Date:      appointment.DateOf(time.Now()).AddDate(0, 0, 1),
		TimeSlot:  "09:00 AM",
	})
	require.NoError(t, err)
	return appt
}

func TestNewWithMemoryStorage(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.PgPool)
	assert.Nil(t, a.Redis)
	require.NotNil(t, a.Locker)

	appt := book(t, a)
	approved, err := a.Appointments.Approve(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusApproved, approved.Status)

	notes, err := a.Notifications.ListForPatient(context.Background(), appt.PatientID, false)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestNewWithRedisPublishesNotifications(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.RedisEnabled = true
	cfg.RedisAddr = mr.Addr()

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NotNil(t, a.Redis)

	appt := book(t, a)
	_, err = a.Appointments.Approve(context.Background(), appt.ID)
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	msgs, err := client.XRange(context.Background(), cfg.NotificationStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, appt.PatientID.String(), msgs[0].Values["patient_id"])
	assert.Equal(t, "appointment_approved", msgs[0].Values["type"])

	// the slot lock was released after booking
	assert.Equal(t, []string{cfg.NotificationStream}, mr.Keys())
}

func TestNewFailsWhenRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.RedisEnabled = true
	cfg.RedisAddr = mr.Addr()
	mr.Close()

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
