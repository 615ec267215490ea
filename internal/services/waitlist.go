package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventease/internal/domain"
)

type waitlistService struct {
	store          domain.LotteryStore
	eventRepo      domain.EventRepository
	entrantRepo    domain.EntrantRepository
	logger         *slog.Logger
	contextTimeout time.Duration
	retry          RetryPolicy
	now            func() time.Time
}

func NewWaitlistService(
	store domain.LotteryStore,
	eventRepo domain.EventRepository,
	entrantRepo domain.EntrantRepository,
	logger *slog.Logger,
	timeout time.Duration,
) domain.WaitlistService {
	return &waitlistService{
		store:          store,
		eventRepo:      eventRepo,
		entrantRepo:    entrantRepo,
		logger:         logger,
		contextTimeout: timeout,
		retry:          DefaultRetryPolicy(),
		now:            time.Now,
	}
}

func (s *waitlistService) Join(ctx context.Context, eventID, entrantID string) (*domain.EntrantStatus, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	var entry *domain.EntrantStatus
	var created bool
	err := retryTransient(ctx, s.logger, s.retry, "join_waitlist", func() error {
		entry, created = nil, false
		return s.store.WithinTx(ctx, func(ctx context.Context, tx domain.LotteryTx) error {
			event, err := tx.LockEvent(ctx, eventID)
			if err != nil {
				return err
			}
			existing, err := tx.GetEntrant(ctx, eventID, entrantID)
			switch {
			case err == nil && existing.Status == domain.StatusWaitlisted:
				entry = existing
				return nil
			case err == nil:
				return domain.ErrAlreadyEntered
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}

			now := s.now()
			if !event.RegistrationOpen(now) {
				return domain.ErrRegistrationClosed
			}
			entry = domain.NewWaitlistEntry(eventID, entrantID, now)
			if err := tx.InsertEntrant(ctx, entry); err != nil {
				return err
			}
			if err := tx.AdjustWaitlistCount(ctx, eventID, 1); err != nil {
				return fmt.Errorf("adjust waitlist count: %w", err)
			}
			created = true
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("join waitlist: %w", err)
	}
	return entry, created, nil
}

func (s *waitlistService) Leave(ctx context.Context, eventID, entrantID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	err := retryTransient(ctx, s.logger, s.retry, "leave_waitlist", func() error {
		return s.store.WithinTx(ctx, func(ctx context.Context, tx domain.LotteryTx) error {
			if _, err := tx.LockEvent(ctx, eventID); err != nil {
				return err
			}
			removed, err := tx.DeleteEntrant(ctx, eventID, entrantID, domain.StatusWaitlisted)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("%w: entrant is not on the waitlist", domain.ErrNotFound)
			}
			return tx.AdjustWaitlistCount(ctx, eventID, -1)
		})
	})
	if err != nil {
		return fmt.Errorf("leave waitlist: %w", err)
	}
	return nil
}

func (s *waitlistService) MyEntry(ctx context.Context, eventID, entrantID string) (*domain.EntrantStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	entry, err := s.entrantRepo.GetByEventAndEntrant(ctx, eventID, entrantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: entrant has not joined this event", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get entrant status: %w", err)
	}
	return entry, nil
}

func (s *waitlistService) ListEntrants(ctx context.Context, eventID, organizerID string, status domain.EntrantState, p domain.PaginationParams) ([]*domain.EntrantStatus, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown entrant status %q", domain.ErrInvalidInput, status)
	}
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	if !event.OwnedBy(organizerID) {
		return nil, 0, domain.ErrForbidden
	}
	entrants, total, err := s.entrantRepo.ListByEvent(ctx, eventID, status, p)
	if err != nil {
		return nil, 0, fmt.Errorf("list entrants: %w", err)
	}
	return entrants, total, nil
}
