package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/notification"
)

func (s *Store) InsertNotification(ctx context.Context, n *notification.Notification) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.notifications[n.ID]; exists {
		return nil, apperr.Storage("insert notification", fmt.Errorf("duplicate id %s", n.ID))
	}

	rec := *n
	rec.Read = false
	rec.ReadAt = nil
	s.notifications[rec.ID] = rec
	s.next(rec.ID)
	s.record(ctx, func() {
		delete(s.notifications, rec.ID)
		delete(s.order, rec.ID)
	})

	out := rec
	return &out, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, patientID uuid.UUID) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.notifications[id]
	if !ok || prev.PatientID != patientID {
		return nil, apperr.NotFound("notification", id.String())
	}
	if prev.Read {
		return &prev, nil
	}

	upd := prev
	now := time.Now().UTC()
	upd.Read = true
	upd.ReadAt = &now

	s.notifications[id] = upd
	s.record(ctx, func() { s.notifications[id] = prev })

	return &upd, nil
}

func (s *Store) ListNotificationsByPatient(_ context.Context, patientID uuid.UUID, unreadOnly bool) ([]notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []notification.Notification
	for _, n := range s.notifications {
		if n.PatientID != patientID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	// newest first
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] > s.order[out[j].ID] })
	return out, nil
}
