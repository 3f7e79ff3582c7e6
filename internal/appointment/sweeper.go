package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/apperr"
	"github.com/hackgods/clinic-appointment-triage/internal/metrics"
	redisclient "github.com/hackgods/clinic-appointment-triage/internal/redis"
)

var ErrSweepInProgress = errors.New("sweep already running for this date")

type SweepResult struct {
	Date       time.Time `json:"date"`
	Considered int       `json:"considered"`
	Cancelled  int       `json:"cancelled"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}

// Sweeper cancels approved appointments the clinic did not complete by the
// end of their day.
type Sweeper struct {
	svc        *Service
	repo       Repository
	locker     redisclient.Locker
	cutoffHour int
	metrics    *metrics.Recorder
	log        *zap.Logger
}

func NewSweeper(svc *Service, locker redisclient.Locker, cutoffHour int) *Sweeper {
	if locker == nil {
		locker = redisclient.NewLocalLocker()
	}
	return &Sweeper{
		svc:        svc,
		repo:       svc.repo,
		locker:     locker,
		cutoffHour: cutoffHour,
		metrics:    svc.metrics,
		log:        svc.log.With(zap.String("component", "sweeper")),
	}
}

// Run sweeps now's calendar day. now must be in the clinic's zone. Before the
// cutoff hour nothing happens. Per-record failures are counted and logged; the
// returned error is set only when the sweep could not start.
func (w *Sweeper) Run(ctx context.Context, now time.Time) (SweepResult, error) {
	res := SweepResult{Date: DateOf(now)}
	if now.Hour() < w.cutoffHour {
		return res, nil
	}

	err := w.locker.WithLock(ctx, redisclient.SweepLockKey(res.Date), func(lockCtx context.Context) error {
		due, err := w.repo.ListApprovedAppointmentsForDate(lockCtx, res.Date)
		if err != nil {
			return apperr.Storage("list approved appointments", err)
		}
		res.Considered = len(due)

		for _, a := range due {
			if err := lockCtx.Err(); err != nil {
				return err
			}
			w.sweepOne(lockCtx, a, now, &res)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return res, ErrSweepInProgress
		}
		return res, fmt.Errorf("sweep %s: %w", res.Date.Format(DateLayout), err)
	}

	w.log.Info("sweep finished",
		zap.String("date", res.Date.Format(DateLayout)),
		zap.Int("considered", res.Considered),
		zap.Int("cancelled", res.Cancelled),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))

	return res, nil
}

func (w *Sweeper) sweepOne(ctx context.Context, a Appointment, now time.Time, res *SweepResult) {
	_, err := w.svc.SweepCancel(ctx, a.ID, now, w.cutoffHour)
	switch {
	case err == nil:
		res.Cancelled++
		w.metrics.SweepCancelled()

	case errors.Is(err, apperr.ErrStateConflict):
		// completed or cancelled since it was listed
		res.Skipped++
		actual, _ := apperr.CurrentStatus(err)
		w.log.Debug("sweep skipped appointment",
			zap.String("appointment_id", a.ID.String()),
			zap.String("current_status", actual))

	default:
		res.Failed++
		w.metrics.SweepFailed()
		w.log.Warn("sweep failed to cancel appointment",
			zap.String("appointment_id", a.ID.String()),
			zap.Bool("retryable", apperr.Retryable(err)),
			zap.Error(err))
	}
}
