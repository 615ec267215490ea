package notify

import (
	"context"
	"log/slog"

	"eventease/internal/domain"
)

// LogPublisher writes notification requests to the log instead of a broker.
// Used when no RabbitMQ URL is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, req *domain.NotificationRequest) error {
	p.Logger.InfoContext(ctx, "notification",
		"id", req.ID,
		"routing_key", RoutingKey(req.GroupType),
		"event_id", req.EventID,
		"recipients", len(req.UserIDs),
		"title", req.Title,
	)
	return nil
}
