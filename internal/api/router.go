package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-triage/internal/appointment"
	"github.com/hackgods/clinic-appointment-triage/internal/emergency"
	"github.com/hackgods/clinic-appointment-triage/internal/metrics"
	"github.com/hackgods/clinic-appointment-triage/internal/notification"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Emergencies   *emergency.Queue
	Notifications *notification.Dispatcher
	Metrics       *metrics.Recorder
	Logger        *zap.Logger
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(RecoverMiddleware(log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Get("/slots", slotsHandler())
	r.Get("/slots/availability", availabilityHandler(cfg.Appointments, log))

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.Appointments, log))
		r.Get("/", listAppointmentsHandler(cfg.Appointments, log))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments, log))
		r.Post("/{id}/approve", approveAppointmentHandler(cfg.Appointments, log))
		r.Post("/{id}/reject", rejectAppointmentHandler(cfg.Appointments, log))
		r.Post("/{id}/complete", completeAppointmentHandler(cfg.Appointments, log))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments, log))
	})

	r.Route("/emergencies", func(r chi.Router) {
		r.Post("/", submitEmergencyHandler(cfg.Emergencies, log))
		r.Get("/", listEmergenciesHandler(cfg.Emergencies, log))
		r.Get("/{id}", getEmergencyHandler(cfg.Emergencies, log))
		r.Post("/{id}/advance", advanceEmergencyHandler(cfg.Emergencies, log))
	})

	r.Get("/patients/{patientID}/notifications", listNotificationsHandler(cfg.Notifications, log))
	r.Post("/patients/{patientID}/notifications/{id}/read", markNotificationReadHandler(cfg.Notifications, log))

	return r
}
