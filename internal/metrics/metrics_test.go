package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := NewRecorder()

	r.Transition("appointment", "pending", "approved")
	r.Transition("appointment", "pending", "approved")
	r.BookingConflict()
	r.SweepCancelled()
	r.NotificationCreated("appointment_approved")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.transitions.WithLabelValues("appointment", "pending", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.bookingConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sweepCancelled))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notifications.WithLabelValues("appointment_approved")))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Transition("emergency", "reported", "triaged")
		r.BookingConflict()
		r.SweepCancelled()
		r.SweepFailed()
		r.NotificationCreated("emergency_status_update")
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.SweepFailed()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "clinic_sweep_failed_total 1")
}
