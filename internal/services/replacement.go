package services

import (
	"context"
	"fmt"
	"time"

	"eventease/internal/domain"
)

// Replace backfills cancelled places. The draw size is the smallest of cancelled,
// the waitlist size and the places not currently held by SELECTED entrants.
func (s *lotteryService) Replace(ctx context.Context, eventID string, cancelled int) (int, error) {
	var event *domain.Event
	var expiresAt time.Time
	n, err := s.run(ctx, "replace", eventID, func(ctx context.Context) (int, error) {
		event = nil
		var drawn int
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.LotteryTx) error {
			ev, err := tx.LockEvent(ctx, eventID)
			if err != nil {
				return err
			}
			now := s.now()
			moved, err := s.replaceInTx(ctx, tx, ev, cancelled, now)
			if err != nil {
				return err
			}
			if len(moved) > 0 {
				event, drawn, expiresAt = ev, len(moved), domain.ReplacementExpiry(now, ev)
			}
			return nil
		})
		return drawn, err
	})
	if err != nil {
		return 0, fmt.Errorf("replace entrants: %w", err)
	}
	if event != nil {
		s.sendSummary(ctx, event, n, expiresAt, true)
	}
	return n, nil
}

// replaceInTx runs one replacement draw inside tx, which must hold the event lock.
func (s *lotteryService) replaceInTx(ctx context.Context, tx domain.LotteryTx, event *domain.Event, cancelled int, now time.Time) ([]string, error) {
	switch {
	case cancelled <= 0:
		return nil, nil
	case !event.SelectionProcessed:
		// the first draw has not run yet and will fill the places itself
		return nil, nil
	case event.DeadlinePassed(now), event.Started(now):
		s.logger.DebugContext(ctx, "replacement window closed", "event_id", event.ID)
		return nil, nil
	}

	waitlist, err := tx.ListEntrantIDs(ctx, event.ID, domain.StatusWaitlisted)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	if len(waitlist) == 0 {
		s.logger.InfoContext(ctx, "waitlist exhausted, no replacement drawn", "event_id", event.ID)
		return nil, nil
	}
	selected, err := tx.CountEntrants(ctx, event.ID, domain.StatusSelected)
	if err != nil {
		return nil, fmt.Errorf("count selected: %w", err)
	}
	toReplace := min(cancelled, len(waitlist), event.Capacity-selected)
	if toReplace <= 0 {
		return nil, nil
	}

	picked := s.drawer.Draw(waitlist, toReplace)
	moved, err := s.admit(ctx, tx, event, picked, now, domain.ReplacementExpiry(now, event), true)
	if err != nil {
		return nil, err
	}
	if _, err := s.enqueueNotification(ctx, tx, event, domain.GroupReplacement, moved); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "replacements drawn", "event_id", event.ID, "drawn", len(moved), "cancelled", cancelled)
	return moved, nil
}
