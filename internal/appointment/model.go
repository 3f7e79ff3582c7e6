package appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further action.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Occupying statuses hold their (date, time slot) pair.
func (s Status) Occupying() bool {
	return s == StatusPending || s == StatusApproved
}

type Action string

const (
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionComplete      Action = "complete"
	ActionSweepCancel   Action = "sweep-cancel"
	ActionPatientCancel Action = "patient-cancel"
)

type rule struct {
	from []Status
	to   Status
}

var transitions = map[Action]rule{
	ActionApprove:       {from: []Status{StatusPending}, to: StatusApproved},
	ActionReject:        {from: []Status{StatusPending}, to: StatusRejected},
	ActionComplete:      {from: []Status{StatusApproved}, to: StatusCompleted},
	ActionSweepCancel:   {from: []Status{StatusApproved}, to: StatusCancelled},
	ActionPatientCancel: {from: []Status{StatusPending, StatusApproved}, to: StatusCancelled},
}

// Next returns the status an action leads to from current, or false when the
// action is not allowed from current.
func Next(a Action, current Status) (Status, bool) {
	r, ok := transitions[a]
	if !ok {
		return "", false
	}
	for _, f := range r.from {
		if f == current {
			return r.to, true
		}
	}
	return "", false
}

// expectedFrom renders the statuses an action accepts, e.g. "pending|approved".
func expectedFrom(a Action) string {
	r := transitions[a]
	parts := make([]string, len(r.from))
	for i, f := range r.from {
		parts[i] = string(f)
	}
	return strings.Join(parts, "|")
}

// TimeSlots is the clinic's bookable day, one slot per hour.
var TimeSlots = []string{
	"08:00 AM",
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"12:00 PM",
	"01:00 PM",
	"02:00 PM",
	"03:00 PM",
	"04:00 PM",
}

func ValidTimeSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

const DateLayout = "2006-01-02"

// DateOf strips t to its calendar date, expressed as midnight UTC so dates
// compare with Equal regardless of the zone they were read in.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperr.Validation("appointment_date", fmt.Sprintf("must be YYYY-MM-DD, got %q", s))
	}
	return t, nil
}

type Appointment struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	Service      string
	Date         time.Time
	TimeSlot     string
	Status       Status
	Notes        string
	StatusReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StatusFields are the optional columns written alongside a status change.
// Nil leaves the stored value untouched.
type StatusFields struct {
	Notes  *string
	Reason *string
}
