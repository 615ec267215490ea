package services

import (
	"context"
	"fmt"

	"eventease/internal/domain"
)

// Close moves the entrants still waitlisted once the lottery has closed (invitation
// deadline, or event start when there is none) to NOT_SELECTED. Runs once per event.
func (s *lotteryService) Close(ctx context.Context, eventID string) (int, error) {
	n, err := s.run(ctx, "close", eventID, func(ctx context.Context) (int, error) {
		var closed int
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.LotteryTx) error {
			event, err := tx.LockEvent(ctx, eventID)
			if err != nil {
				return err
			}
			closesAt := event.ClosesAt()
			if !event.SelectionProcessed || event.NonSelectedProcessed || closesAt == nil || s.now().Before(*closesAt) {
				return nil
			}
			waitlist, err := tx.ListEntrantIDs(ctx, eventID, domain.StatusWaitlisted)
			if err != nil {
				return fmt.Errorf("list waitlist: %w", err)
			}
			moved, err := tx.TransitionEntrants(ctx, eventID, waitlist, domain.StatusWaitlisted, domain.StatusNotSelected, s.now())
			if err != nil {
				return err
			}
			if err := tx.MarkNonSelectedProcessed(ctx, eventID); err != nil {
				return fmt.Errorf("mark non-selected processed: %w", err)
			}
			closed = len(moved)
			return nil
		})
		return closed, err
	})
	if err != nil {
		return 0, fmt.Errorf("close waitlist: %w", err)
	}
	return n, nil
}

// NotifyNotSelected sends the one-time message to NOT_SELECTED entrants once the
// event starts within domain.NotSelectedNoticeLead. Returns the number of recipients.
func (s *lotteryService) NotifyNotSelected(ctx context.Context, eventID string) (int, error) {
	n, err := s.run(ctx, "notify_not_selected", eventID, func(ctx context.Context) (int, error) {
		var sent int
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.LotteryTx) error {
			event, err := tx.LockEvent(ctx, eventID)
			if err != nil {
				return err
			}
			now := s.now()
			if !event.NonSelectedProcessed || event.SorryNotificationSent || event.StartsAt == nil || event.Started(now) {
				return nil
			}
			if now.Before(event.StartsAt.Add(-domain.NotSelectedNoticeLead)) {
				return nil
			}
			ids, err := tx.ListEntrantIDs(ctx, eventID, domain.StatusNotSelected)
			if err != nil {
				return fmt.Errorf("list not selected: %w", err)
			}
			claimed, err := tx.ClaimFlag(ctx, eventID, domain.FlagSorryNotificationSent)
			if err != nil || !claimed {
				return err
			}
			sent, err = s.enqueueNotification(ctx, tx, event, domain.GroupSorry, ids)
			return err
		})
		return sent, err
	})
	if err != nil {
		return 0, fmt.Errorf("notify not selected: %w", err)
	}
	return n, nil
}
