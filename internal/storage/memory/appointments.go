package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
)

// occupant returns the live appointment holding the pair. Callers hold s.mu.
func (s *Store) occupant(date time.Time, timeSlot string) (appointment.Appointment, bool) {
	for _, a := range s.appointments {
		if a.Status.Occupying() && a.TimeSlot == timeSlot && a.Date.Equal(date) {
			return a, true
		}
	}
	return appointment.Appointment{}, false
}

func (s *Store) FindConflictingAppointment(_ context.Context, date time.Time, timeSlot string) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.occupant(appointment.DateOf(date), timeSlot)
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) InsertAppointment(ctx context.Context, a *appointment.Appointment) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := *a
	rec.Date = appointment.DateOf(rec.Date)

	if _, exists := s.appointments[rec.ID]; exists {
		return nil, apperr.Storage("insert appointment", fmt.Errorf("duplicate id %s", rec.ID))
	}
	if rec.Status.Occupying() {
		if _, taken := s.occupant(rec.Date, rec.TimeSlot); taken {
			return nil, apperr.Conflict(fmt.Sprintf("%s %s is already booked", rec.Date.Format(appointment.DateLayout), rec.TimeSlot))
		}
	}

	s.appointments[rec.ID] = rec
	s.next(rec.ID)
	s.record(ctx, func() {
		delete(s.appointments, rec.ID)
		delete(s.order, rec.ID)
	})

	out := rec
	return &out, nil
}

func (s *Store) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, expected, next appointment.Status, fields appointment.StatusFields) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.appointments[id]
	if !ok {
		return nil, apperr.NotFound("appointment", id.String())
	}
	if prev.Status != expected {
		return nil, apperr.StateConflict("appointment", id.String(), string(expected), string(prev.Status))
	}
	if next.Occupying() && !prev.Status.Occupying() {
		if _, taken := s.occupant(prev.Date, prev.TimeSlot); taken {
			return nil, apperr.Conflict("time slot is held by another appointment")
		}
	}

	upd := prev
	upd.Status = next
	if fields.Notes != nil {
		upd.Notes = *fields.Notes
	}
	if fields.Reason != nil {
		upd.StatusReason = *fields.Reason
	}
	upd.UpdatedAt = time.Now().UTC()

	s.appointments[id] = upd
	s.record(ctx, func() { s.appointments[id] = prev })

	out := upd
	return &out, nil
}

func (s *Store) ListApprovedAppointmentsForDate(_ context.Context, date time.Time) ([]appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := appointment.DateOf(date)
	var out []appointment.Appointment
	for _, a := range s.appointments {
		if a.Status == appointment.StatusApproved && a.Date.Equal(day) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out, nil
}

func (s *Store) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, apperr.NotFound("appointment", id.String())
	}
	return &a, nil
}

func (s *Store) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []appointment.Appointment
	for _, a := range s.appointments {
		if a.PatientID == patientID {
			all = append(all, a)
		}
	}
	// newest booking first
	sort.Slice(all, func(i, j int) bool { return s.order[all[i].ID] > s.order[all[j].ID] })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
