package notification

import (
	"context"

	"alumnet/internal/events"
	"alumnet/internal/logger"
)

// Service records every swap notification in the structured log. It is the
// subscriber that is always attached, whether or not a broker is configured.
type Service struct {
	log *logger.Logger
}

func NewService(log *logger.Logger) *Service {
	return &Service{log: logger.OrNop(log).With("component", "notification")}
}

func (s *Service) Name() string { return "notification-log" }

func (s *Service) Handle(_ context.Context, ev events.Event) error {
	for _, recipient := range ev.Recipients {
		s.log.Info("notify user",
			"user_id", recipient,
			"event", ev.Type,
			"entity_id", ev.EntityID,
			"actor_id", ev.ActorID,
		)
	}
	return nil
}
