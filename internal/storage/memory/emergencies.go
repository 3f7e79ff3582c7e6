package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/emergency"
)

func cloneRecord(r emergency.Record) emergency.Record {
	out := r
	out.Symptoms = slices.Clone(r.Symptoms)
	if r.PainLevel != nil {
		v := *r.PainLevel
		out.PainLevel = &v
	}
	if r.HandledBy != nil {
		v := *r.HandledBy
		out.HandledBy = &v
	}
	if r.ResolvedAt != nil {
		v := *r.ResolvedAt
		out.ResolvedAt = &v
	}
	return out
}

func (s *Store) InsertEmergencyRecord(ctx context.Context, r *emergency.Record) (*emergency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emergencies[r.ID]; exists {
		return nil, apperr.Storage("insert emergency record", fmt.Errorf("duplicate id %s", r.ID))
	}

	rec := cloneRecord(*r)
	if rec.Symptoms == nil {
		rec.Symptoms = []string{}
	}
	s.emergencies[rec.ID] = rec
	s.next(rec.ID)
	s.record(ctx, func() {
		delete(s.emergencies, rec.ID)
		delete(s.order, rec.ID)
	})

	out := cloneRecord(rec)
	return &out, nil
}

func (s *Store) UpdateEmergencyRecord(ctx context.Context, id uuid.UUID, expected emergency.Status, u emergency.Update) (*emergency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.emergencies[id]
	if !ok {
		return nil, apperr.NotFound("emergency", id.String())
	}
	if prev.Status != expected {
		return nil, apperr.StateConflict("emergency", id.String(), string(expected), string(prev.Status))
	}

	upd := cloneRecord(prev)
	upd.Status = u.Status
	if u.Priority != nil {
		upd.Priority = *u.Priority
	}
	if u.HandledBy != nil {
		v := *u.HandledBy
		upd.HandledBy = &v
	}
	if u.Resolution != nil {
		upd.Resolution = *u.Resolution
	}
	upd.ResolvedAt = nil
	if u.ResolvedAt != nil {
		v := *u.ResolvedAt
		upd.ResolvedAt = &v
	}
	if (upd.Status == emergency.StatusResolved) != (upd.ResolvedAt != nil) {
		return nil, apperr.Storage("update emergency record",
			fmt.Errorf("resolved_at must be set exactly when status is resolved"))
	}
	upd.UpdatedAt = time.Now().UTC()

	s.emergencies[id] = upd
	s.record(ctx, func() { s.emergencies[id] = prev })

	out := cloneRecord(upd)
	return &out, nil
}

func (s *Store) ListEmergencyRecords(_ context.Context, f emergency.Filter) ([]emergency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []emergency.Record
	for _, r := range s.emergencies {
		if f.ExcludeResolved && r.Status == emergency.StatusResolved {
			continue
		}
		out = append(out, cloneRecord(r))
	}
	slices.SortFunc(out, func(a, b emergency.Record) int {
		return int(s.order[a.ID] - s.order[b.ID])
	})
	emergency.SortQueue(out)
	return out, nil
}

func (s *Store) GetEmergencyRecordByID(_ context.Context, id uuid.UUID) (*emergency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.emergencies[id]
	if !ok {
		return nil, apperr.NotFound("emergency", id.String())
	}
	out := cloneRecord(r)
	return &out, nil
}
