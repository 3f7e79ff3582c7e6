package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
)

func TestNext(t *testing.T) {
	tests := []struct {
		action Action
		from   Status
		want   Status
		ok     bool
	}{
		{ActionApprove, StatusPending, StatusApproved, true},
		{ActionApprove, StatusApproved, "", false},
		{ActionReject, StatusPending, StatusRejected, true},
		{ActionReject, StatusApproved, "", false},
		{ActionComplete, StatusApproved, StatusCompleted, true},
		{ActionComplete, StatusPending, "", false},
		{ActionSweepCancel, StatusApproved, StatusCancelled, true},
		{ActionSweepCancel, StatusPending, "", false},
		{ActionPatientCancel, StatusPending, StatusCancelled, true},
		{ActionPatientCancel, StatusApproved, StatusCancelled, true},
		{ActionPatientCancel, StatusCompleted, "", false},
		{Action("reopen"), StatusCancelled, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.from), func(t *testing.T) {
			got, ok := Next(tt.action, tt.from)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTerminalStatusesAcceptNoAction(t *testing.T) {
	actions := []Action{ActionApprove, ActionReject, ActionComplete, ActionSweepCancel, ActionPatientCancel}
	for _, s := range []Status{StatusRejected, StatusCompleted, StatusCancelled} {
		assert.True(t, s.Terminal())
		assert.False(t, s.Occupying())
		for _, a := range actions {
			_, ok := Next(a, s)
			assert.False(t, ok, "%s from %s", a, s)
		}
	}
	assert.False(t, Status("archived").Valid())
}

func TestExpectedFrom(t *testing.T) {
	assert.Equal(t, "pending", expectedFrom(ActionApprove))
	assert.Equal(t, "pending|approved", expectedFrom(ActionPatientCancel))
}

func TestTimeSlots(t *testing.T) {
	assert.True(t, ValidTimeSlot("09:00 AM"))
	assert.True(t, ValidTimeSlot("04:00 PM"))
	assert.False(t, ValidTimeSlot("9:00 AM"))
	assert.False(t, ValidTimeSlot("05:00 PM"))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("10/03/2025")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDateOfKeepsLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	late := time.Date(2025, 3, 10, 23, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), DateOf(late))
}
