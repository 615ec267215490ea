package services

import (
	"context"
	"fmt"

	"eventease/internal/domain"
)

// Reap declines every pending invitation of the event whose expiry (or the event's
// invitation deadline) has been reached, cancels those entrants and backfills the
// freed places in the same transaction. Every write is conditional on the current
// state, so overlapping sweeps cancel each entrant once.
func (s *lotteryService) Reap(ctx context.Context, eventID string) (int, error) {
	n, err := s.run(ctx, "reap", eventID, func(ctx context.Context) (int, error) {
		var cancelled int
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.LotteryTx) error {
			event, err := tx.LockEvent(ctx, eventID)
			if err != nil {
				return err
			}
			now := s.now()
			if event.Started(now) {
				return nil
			}

			expired, err := tx.ExpireInvitations(ctx, eventID, now, event.DeadlinePassed(now))
			if err != nil {
				return fmt.Errorf("expire invitations: %w", err)
			}
			if len(expired) == 0 {
				return nil
			}
			entrantIDs := make([]string, 0, len(expired))
			for _, inv := range expired {
				entrantIDs = append(entrantIDs, inv.EntrantID)
			}
			moved, err := tx.TransitionEntrants(ctx, eventID, entrantIDs, domain.StatusSelected, domain.StatusCancelled, now)
			if err != nil {
				return err
			}
			if len(moved) == 0 {
				return nil
			}

			claimed, err := tx.ClaimFlag(ctx, eventID, domain.FlagDeadlineNotificationSent)
			if err != nil {
				return fmt.Errorf("claim deadline notification: %w", err)
			}
			if claimed {
				if _, err := s.enqueueNotification(ctx, tx, event, domain.GroupDeadline, moved); err != nil {
					return err
				}
			}
			if _, err := s.replaceInTx(ctx, tx, event, len(moved), now); err != nil {
				return err
			}
			cancelled = len(moved)
			return nil
		})
		return cancelled, err
	})
	if err != nil {
		return 0, fmt.Errorf("reap expired invitations: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired invitations reaped", "event_id", eventID, "cancelled", n)
	}
	return n, nil
}
