package notification

import (
	"fmt"
	"strings"
)

const (
	dateLayout     = "2006-01-02"
	longDateLayout = "January 2, 2006"

	arrivalReminder = "Please arrive at least 15 minutes before your scheduled time."
)

type rendered struct {
	kind  Type
	title string
	body  string
}

// renderAppointment picks the template for a transition. The bool is false
// when the pair is not a transition the state machine can produce.
func renderAppointment(t AppointmentTransition) (rendered, bool) {
	what := fmt.Sprintf("Your appointment for %s on %s at %s",
		t.Service, t.Date.Format(longDateLayout), t.TimeSlot)

	switch {
	case t.From == "pending" && t.To == "approved":
		return rendered{
			kind:  TypeAppointmentApproved,
			title: "Appointment Approved",
			body:  what + " has been approved. " + arrivalReminder,
		}, true

	case t.From == "pending" && t.To == "rejected":
		body := what + " has been rejected."
		if r := strings.TrimSpace(t.Reason); r != "" {
			body += " Reason: " + r
		}
		return rendered{kind: TypeAppointmentRejected, title: "Appointment Rejected", body: body}, true

	case t.From == "approved" && t.To == "completed":
		return rendered{
			kind:  TypeAppointmentCompleted,
			title: "Appointment Completed",
			body:  what + " has been completed. Thank you for visiting the clinic.",
		}, true

	case t.From == "approved" && t.To == "cancelled" && t.Initiator == InitiatorSweeper:
		return rendered{
			kind:  TypeAppointmentCancelled,
			title: "Appointment Cancelled",
			body: what + " was cancelled because the clinic did not complete it by the end of the day. " +
				"Please book a new appointment if you still need this service.",
		}, true

	case (t.From == "pending" || t.From == "approved") && t.To == "cancelled" && t.Initiator == InitiatorPatient:
		body := what + " has been cancelled at your request."
		if r := strings.TrimSpace(t.Reason); r != "" {
			body += " Reason: " + r
		}
		return rendered{kind: TypeAppointmentCancelled, title: "Appointment Cancelled", body: body}, true
	}

	return rendered{}, false
}

var emergencyStatusLabels = map[string]string{
	"reported":    "reported",
	"triaged":     "triaged by clinic staff",
	"in_progress": "being attended to",
	"resolved":    "resolved",
	"referred":    "referred to another facility",
}

func renderEmergency(t EmergencyTransition) (rendered, bool) {
	label, ok := emergencyStatusLabels[t.To]
	if !ok {
		return rendered{}, false
	}

	kind := strings.ReplaceAll(t.EmergencyType, "_", " ")
	body := fmt.Sprintf("Your emergency report (%s) is now %s.", kind, label)
	if r := strings.TrimSpace(t.Resolution); r != "" {
		body += " Resolution: " + r
	}

	return rendered{
		kind:  TypeEmergencyStatusUpdate,
		title: "Emergency Status Update",
		body:  body,
	}, true
}
