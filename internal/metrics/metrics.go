// Package metrics holds the Prometheus collectors for the clinic workflow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the domain packages report to. Nil-safe helpers below
// let tests leave it unset.
type Recorder struct {
	registry *prometheus.Registry

	transitions      *prometheus.CounterVec
	bookingConflicts prometheus.Counter
	sweepCancelled   prometheus.Counter
	sweepFailed      prometheus.Counter
	notifications    *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_transitions_total",
				Help: "Committed status transitions by entity",
			},
			[]string{"entity", "from", "to"},
		),
		bookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_booking_conflicts_total",
			Help: "Booking requests rejected because the slot was occupied",
		}),
		sweepCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_sweep_cancelled_total",
			Help: "Approved appointments cancelled by the end-of-day sweep",
		}),
		sweepFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_sweep_failed_total",
			Help: "Appointments the end-of-day sweep could not cancel",
		}),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinic_notifications_created_total",
				Help: "Notification records written by type",
			},
			[]string{"type"},
		),
	}

	r.registry.MustRegister(
		r.transitions,
		r.bookingConflicts,
		r.sweepCancelled,
		r.sweepFailed,
		r.notifications,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Transition(entity, from, to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(entity, from, to).Inc()
}

func (r *Recorder) BookingConflict() {
	if r == nil {
		return
	}
	r.bookingConflicts.Inc()
}

func (r *Recorder) SweepCancelled() {
	if r == nil {
		return
	}
	r.sweepCancelled.Inc()
}

func (r *Recorder) SweepFailed() {
	if r == nil {
		return
	}
	r.sweepFailed.Inc()
}

func (r *Recorder) NotificationCreated(kind string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(kind).Inc()
}

// Handler exposes the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
