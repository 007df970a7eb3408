package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careloop/consultation-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Service

	// Availability windows
	r.Post("/windows", createWindowHandler(svc))
	r.Put("/windows/{id}", updateWindowHandler(svc))
	r.Delete("/windows/{id}", deleteWindowHandler(svc))
	r.Post("/windows/{id}/activate", setWindowStatusHandler(func(req *http.Request, id uuid.UUID) (*scheduling.AvailabilityWindow, error) {
		return svc.ActivateWindow(req.Context(), id)
	}))
	r.Post("/windows/{id}/deactivate", setWindowStatusHandler(func(req *http.Request, id uuid.UUID) (*scheduling.AvailabilityWindow, error) {
		return svc.DeactivateWindow(req.Context(), id)
	}))
	r.Get("/practitioners/{id}/windows", listPractitionerWindowsHandler(svc))
	r.Delete("/practitioners/{id}/windows", deletePractitionerWindowsHandler(svc))

	// Appointments
	r.Post("/appointments", createAppointmentHandler(svc))
	r.Get("/appointments", listAppointmentsHandler(svc))
	r.Get("/appointments/{id}", getAppointmentHandler(svc))
	r.Put("/appointments/{id}", updateAppointmentHandler(svc))
	r.Post("/appointments/{id}/complete", lifecycleHandler(func(req *http.Request, id uuid.UUID) (*scheduling.Appointment, error) {
		return svc.CompleteAppointment(req.Context(), id)
	}))
	r.Post("/appointments/{id}/cancel", lifecycleHandler(func(req *http.Request, id uuid.UUID) (*scheduling.Appointment, error) {
		return svc.CancelAppointment(req.Context(), id)
	}))
	r.Post("/appointments/{id}/no-show", lifecycleHandler(func(req *http.Request, id uuid.UUID) (*scheduling.Appointment, error) {
		return svc.MarkNoShow(req.Context(), id)
	}))

	// Availability queries
	r.Get("/practitioners/{id}/availability", practitionerAvailabilityHandler(svc))
	r.Get("/availability/practitioners", practitionersAvailableHandler(svc))

	return r
}
