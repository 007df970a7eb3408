package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/careloop/consultation-scheduling/internal/redis"
)

const (
	EventWindowCreated     = "WINDOW_CREATED"
	EventWindowUpdated     = "WINDOW_UPDATED"
	EventWindowDeleted     = "WINDOW_DELETED"
	EventAppointmentBooked = "APPOINTMENT_BOOKED"
	EventAppointmentMoved  = "APPOINTMENT_RESCHEDULED"
	EventAppointmentClosed = "APPOINTMENT_COMPLETED"
	EventAppointmentVoided = "APPOINTMENT_CANCELLED"
	EventAppointmentNoShow = "APPOINTMENT_NO_SHOW"
)

// Service is the scheduling and conflict engine. It is request-scoped and
// stateless between calls; all durable state lives in the repository.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
	policy BookingPolicy
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log.With().Str("component", "scheduling").Logger(),
		policy: PolicyExactSlot,
		now:    time.Now,
	}
}

// Policy names the conflict-detection rule in force.
func (s *Service) Policy() BookingPolicy {
	return s.policy
}

func (s *Service) logAppointmentEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	id := appointmentID
	s.logEvent(ctx, EventLog{EventType: eventType, AppointmentID: &id}, payload)
}

func (s *Service) logWindowEvent(ctx context.Context, windowID uuid.UUID, eventType string, payload map[string]any) {
	id := windowID
	s.logEvent(ctx, EventLog{EventType: eventType, WindowID: &id}, payload)
}

func (s *Service) logEvent(ctx context.Context, ev EventLog, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event", ev.EventType).Msg("marshal event payload")
		data = nil
	}

	ev.Payload = data
	ev.CreatedAt = s.now()

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", ev.EventType).Msg("insert event log")
	}
}
