package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventease/internal/domain"
)

type invitationService struct {
	store          domain.LotteryStore
	invitationRepo domain.InvitationRepository
	eventRepo      domain.EventRepository
	locker         domain.EventLocker
	replacer       domain.ReplacementTrigger
	logger         *slog.Logger
	contextTimeout time.Duration
	retry          RetryPolicy
	now            func() time.Time
}

// NewInvitationService returns the entrant-facing invitation service. Declines hand the
// freed place to replacer without waiting for the draw.
func NewInvitationService(
	store domain.LotteryStore,
	invitationRepo domain.InvitationRepository,
	eventRepo domain.EventRepository,
	locker domain.EventLocker,
	replacer domain.ReplacementTrigger,
	logger *slog.Logger,
	timeout time.Duration,
) domain.InvitationService {
	return &invitationService{
		store:          store,
		invitationRepo: invitationRepo,
		eventRepo:      eventRepo,
		locker:         locker,
		replacer:       replacer,
		logger:         logger,
		contextTimeout: timeout,
		retry:          DefaultRetryPolicy(),
		now:            time.Now,
	}
}

func (s *invitationService) Accept(ctx context.Context, invitationID, entrantID string) (*domain.Invitation, error) {
	inv, _, err := s.respond(ctx, invitationID, entrantID, domain.InvitationAccepted)
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	return inv, nil
}

func (s *invitationService) Decline(ctx context.Context, invitationID, entrantID string) (*domain.Invitation, error) {
	inv, cancelled, err := s.respond(ctx, invitationID, entrantID, domain.InvitationDeclined)
	if err != nil {
		return nil, fmt.Errorf("decline invitation: %w", err)
	}
	if cancelled > 0 {
		s.replacer.Trigger(ctx, inv.EventID, cancelled)
	}
	return inv, nil
}

// respond moves a PENDING invitation of entrantID to status. A decline also moves the
// entrant SELECTED->CANCELLED; the number of entrants cancelled is returned.
func (s *invitationService) respond(ctx context.Context, invitationID, entrantID string, status domain.InvitationStatus) (*domain.Invitation, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "invitation.respond")
	defer span.End()

	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		return nil, 0, err
	}
	if inv.EntrantID != entrantID {
		// someone else's invitation is reported as missing
		return nil, 0, domain.ErrNotFound
	}

	release, err := s.locker.Acquire(ctx, inv.EventID)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire event lease: %w", err)
	}
	defer release()

	var result *domain.Invitation
	var cancelled int
	err = retryTransient(ctx, s.logger, s.retry, "respond", func() error {
		result, cancelled = nil, 0
		return s.store.WithinTx(ctx, func(ctx context.Context, tx domain.LotteryTx) error {
			event, err := tx.LockEvent(ctx, inv.EventID)
			if err != nil {
				return err
			}
			current, err := tx.GetInvitation(ctx, invitationID)
			if err != nil {
				return err
			}
			if current.Status != domain.InvitationPending {
				return domain.ErrInvitationNotPending
			}
			now := s.now()
			if current.Expired(now) || event.DeadlinePassed(now) {
				return domain.ErrInvitationExpired
			}
			ok, err := tx.RespondToInvitation(ctx, invitationID, status, now)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrInvitationNotPending
			}
			if status == domain.InvitationDeclined {
				moved, err := tx.TransitionEntrants(ctx, current.EventID, []string{entrantID}, domain.StatusSelected, domain.StatusCancelled, now)
				if err != nil {
					return err
				}
				cancelled = len(moved)
			}
			current.Status = status
			current.RespondedAt = &now
			result = current
			return nil
		})
	})
	if err != nil {
		return nil, 0, err
	}
	s.logger.InfoContext(ctx, "invitation answered", "invitation_id", invitationID, "event_id", result.EventID, "status", status)
	return result, cancelled, nil
}

func (s *invitationService) ListMyInvitations(ctx context.Context, entrantID string, status domain.InvitationStatus) ([]*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown invitation status %q", domain.ErrInvalidInput, status)
	}
	invs, err := s.invitationRepo.ListByEntrant(ctx, entrantID, status)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

func (s *invitationService) ListEventInvitations(ctx context.Context, eventID, organizerID string, p domain.PaginationParams) ([]*domain.Invitation, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

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
	invs, total, err := s.invitationRepo.ListByEvent(ctx, eventID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("list event invitations: %w", err)
	}
	return invs, total, nil
}
