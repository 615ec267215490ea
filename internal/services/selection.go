package services

import (
	"context"
	"fmt"
	"time"

	"eventease/internal/domain"
)

// Select draws min(capacity, waitlist) entrants once the registration window has
// closed. selection_processed is set in the same transaction as the moves, so a
// failed run leaves the event eligible for the next attempt.
func (s *lotteryService) Select(ctx context.Context, eventID string) (int, error) {
	var event *domain.Event
	var expiresAt time.Time
	n, err := s.run(ctx, "select", eventID, func(ctx context.Context) (int, error) {
		event = nil
		var selected int
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.LotteryTx) error {
			ev, err := tx.LockEvent(ctx, eventID)
			if err != nil {
				return err
			}
			now := s.now()
			switch {
			case ev.SelectionProcessed:
				s.logger.DebugContext(ctx, "selection already processed", "event_id", eventID)
				return nil
			case !ev.RegistrationClosed(now):
				s.logger.DebugContext(ctx, "registration still open", "event_id", eventID)
				return nil
			case ev.Started(now):
				s.logger.DebugContext(ctx, "event already started", "event_id", eventID)
				return nil
			}

			waitlist, err := tx.ListEntrantIDs(ctx, eventID, domain.StatusWaitlisted)
			if err != nil {
				return fmt.Errorf("list waitlist: %w", err)
			}
			if ev.Capacity <= 0 || len(waitlist) == 0 {
				return tx.MarkSelectionProcessed(ctx, eventID)
			}

			expiresAt = domain.InitialExpiry(now)
			picked := s.drawer.Draw(waitlist, ev.Capacity)
			moved, err := s.admit(ctx, tx, ev, picked, now, expiresAt, false)
			if err != nil {
				return err
			}
			if err := tx.MarkSelectionProcessed(ctx, eventID); err != nil {
				return fmt.Errorf("mark selection processed: %w", err)
			}
			if len(moved) > 0 {
				claimed, err := tx.ClaimFlag(ctx, eventID, domain.FlagSelectionNotificationSent)
				if err != nil {
					return fmt.Errorf("claim selection notification: %w", err)
				}
				if claimed {
					if _, err := s.enqueueNotification(ctx, tx, ev, domain.GroupSelection, moved); err != nil {
						return err
					}
				}
			}
			event, selected = ev, len(moved)
			return nil
		})
		return selected, err
	})
	if err != nil {
		return 0, fmt.Errorf("select entrants: %w", err)
	}
	if event != nil {
		s.logger.InfoContext(ctx, "selection completed", "event_id", eventID, "selected", n, "capacity", event.Capacity)
		s.sendSummary(ctx, event, n, expiresAt, false)
	}
	return n, nil
}

// sendSummary e-mails the organizer the outcome of a draw. Failures are logged only.
func (s *lotteryService) sendSummary(ctx context.Context, event *domain.Event, selected int, expiresAt time.Time, replacement bool) {
	if s.emailService == nil || event.OrganizerEmail == "" || selected == 0 {
		return
	}
	data := &domain.SelectionSummaryEmailData{
		Email:         event.OrganizerEmail,
		EventTitle:    event.Title,
		EventID:       event.ID,
		Selected:      selected,
		Capacity:      event.Capacity,
		WaitlistLeft:  max(0, event.WaitlistCount-selected),
		RespondBy:     expiresAt.UTC().Format(time.RFC1123),
		IsReplacement: replacement,
	}
	if err := s.emailService.SendSelectionSummary(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "selection summary e-mail failed", "event_id", event.ID, "err", err)
	}
}
