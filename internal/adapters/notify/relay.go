package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventease/internal/domain"
)

const (
	DefaultBatchSize   = 100
	DefaultMaxAttempts = 5
)

// Relay moves PENDING notification requests from the outbox table to a publisher.
// A request that fails maxAttempts times is parked as FAILED.
type Relay struct {
	repo        domain.NotificationRequestRepository
	pub         domain.NotificationPublisher
	batchSize   int
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

func NewRelay(repo domain.NotificationRequestRepository, pub domain.NotificationPublisher, logger *slog.Logger) *Relay {
	return &Relay{
		repo:        repo,
		pub:         pub,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// Flush publishes one batch and returns how many requests were published.
// Publish failures are recorded per request and do not fail the batch.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	pending, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending notifications: %w", err)
	}
	published := 0
	for _, req := range pending {
		if err := r.pub.Publish(ctx, req); err != nil {
			r.logger.WarnContext(ctx, "notification publish failed",
				"id", req.ID, "event_id", req.EventID, "attempt", req.Attempts+1, "err", err)
			if err := r.repo.MarkAttemptFailed(ctx, req.ID, r.maxAttempts, r.now()); err != nil {
				return published, fmt.Errorf("record failed attempt for %s: %w", req.ID, err)
			}
			continue
		}
		if err := r.repo.MarkPublished(ctx, req.ID, r.now()); err != nil {
			// published but not marked: it goes out again next flush
			return published, fmt.Errorf("mark %s published: %w", req.ID, err)
		}
		published++
	}
	return published, nil
}
