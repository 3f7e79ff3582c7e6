package appointment

import (
	"context"
	"time"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
)

// ConflictChecker answers whether a (date, time slot) pair is free.
type ConflictChecker struct {
	repo Repository
}

func NewConflictChecker(repo Repository) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// CheckAvailable reports false when a pending or approved appointment holds
// the pair. A failed lookup is returned as a retryable storage error, never
// as availability.
func (c *ConflictChecker) CheckAvailable(ctx context.Context, date time.Time, timeSlot string) (bool, error) {
	existing, err := c.repo.FindConflictingAppointment(ctx, DateOf(date), timeSlot)
	if err != nil {
		return false, apperr.Storage("find conflicting appointment", err)
	}
	return existing == nil, nil
}
