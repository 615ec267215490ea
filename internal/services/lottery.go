package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"eventease/internal/domain"
)

var tracer = otel.Tracer("eventease/internal/services")

type lotteryService struct {
	store          domain.LotteryStore
	eventRepo      domain.EventRepository
	locker         domain.EventLocker
	emailService   domain.EmailService
	logger         *slog.Logger
	contextTimeout time.Duration

	drawer *Drawer
	retry  RetryPolicy
	now    func() time.Time
	newID  func() string
}

// LotteryOption customises a lottery service.
type LotteryOption func(*lotteryService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) LotteryOption {
	return func(s *lotteryService) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for invitation and notification IDs.
func WithIDGenerator(newID func() string) LotteryOption {
	return func(s *lotteryService) { s.newID = newID }
}

// WithDrawer sets the random source used for selection and replacement draws.
func WithDrawer(d *Drawer) LotteryOption {
	return func(s *lotteryService) { s.drawer = d }
}

// WithRetryPolicy sets how transient store failures are retried.
func WithRetryPolicy(p RetryPolicy) LotteryOption {
	return func(s *lotteryService) { s.retry = p }
}

// NewLotteryService returns the selection lifecycle service. emailService may be nil,
// in which case organizers get no summary e-mail.
func NewLotteryService(
	store domain.LotteryStore,
	eventRepo domain.EventRepository,
	locker domain.EventLocker,
	emailService domain.EmailService,
	logger *slog.Logger,
	timeout time.Duration,
	opts ...LotteryOption,
) domain.LotteryService {
	s := &lotteryService{
		store:          store,
		eventRepo:      eventRepo,
		locker:         locker,
		emailService:   emailService,
		logger:         logger,
		contextTimeout: timeout,
		drawer:         NewRandomDrawer(),
		retry:          DefaultRetryPolicy(),
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run wraps one lottery operation: timeout, span, per-event lease, and retry of
// transient store failures around fn.
func (s *lotteryService) run(ctx context.Context, op, eventID string, fn func(ctx context.Context) (int, error)) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "lottery."+op, trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()

	release, err := s.locker.Acquire(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "acquire event lease")
		return 0, fmt.Errorf("acquire event lease: %w", err)
	}
	defer release()

	var n int
	err = retryTransient(ctx, s.logger, s.retry, op, func() error {
		var err error
		n, err = fn(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return 0, err
	}
	span.SetAttributes(attribute.Int("lottery.affected", n))
	return n, nil
}

// admit moves the picked entrants WAITLISTED->SELECTED and issues an invitation to
// each one that actually moved. It returns the moved entrant IDs.
func (s *lotteryService) admit(ctx context.Context, tx domain.LotteryTx, event *domain.Event, picked []string, now, expiresAt time.Time, replacement bool) ([]string, error) {
	moved, err := tx.TransitionEntrants(ctx, event.ID, picked, domain.StatusWaitlisted, domain.StatusSelected, now)
	if err != nil {
		return nil, err
	}
	if len(moved) == 0 {
		return moved, nil
	}
	if err := tx.AdjustWaitlistCount(ctx, event.ID, -len(moved)); err != nil {
		return nil, fmt.Errorf("adjust waitlist count: %w", err)
	}
	if _, err := s.issue(ctx, tx, event.ID, moved, now, expiresAt, replacement); err != nil {
		return nil, err
	}
	return moved, nil
}

// issue creates one PENDING invitation per entrant. Entrants that already hold a
// pending invitation for the event are skipped.
func (s *lotteryService) issue(ctx context.Context, tx domain.LotteryTx, eventID string, entrantIDs []string, now, expiresAt time.Time, replacement bool) ([]*domain.Invitation, error) {
	pending, err := tx.PendingInvitees(ctx, eventID, entrantIDs)
	if err != nil {
		return nil, fmt.Errorf("check pending invitations: %w", err)
	}
	invs := make([]*domain.Invitation, 0, len(entrantIDs))
	for _, id := range entrantIDs {
		if pending[id] {
			s.logger.WarnContext(ctx, "entrant already has a pending invitation, not issuing another",
				"event_id", eventID, "entrant_id", id)
			continue
		}
		invs = append(invs, domain.NewInvitation(s.newID(), eventID, id, now, expiresAt, replacement))
	}
	if len(invs) == 0 {
		return invs, nil
	}
	if err := tx.CreateInvitations(ctx, invs); err != nil {
		return nil, fmt.Errorf("issue invitations: %w", err)
	}
	return invs, nil
}

// enqueueNotification writes a notification request for the users that did not opt
// out of group and returns how many recipients it has.
func (s *lotteryService) enqueueNotification(ctx context.Context, tx domain.LotteryTx, event *domain.Event, group domain.NotificationGroup, userIDs []string) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	recipients, err := tx.FilterRecipients(ctx, userIDs, group)
	if err != nil {
		return 0, fmt.Errorf("filter %s recipients: %w", group, err)
	}
	if len(recipients) == 0 {
		return 0, nil
	}
	title, message := composeMessage(group, event.Title)
	req := &domain.NotificationRequest{
		ID:          s.newID(),
		EventID:     event.ID,
		EventTitle:  event.Title,
		OrganizerID: event.OrganizerID,
		UserIDs:     recipients,
		Title:       title,
		Message:     message,
		GroupType:   group,
		Status:      domain.NotificationPending,
		CreatedAt:   s.now(),
	}
	if err := tx.CreateNotificationRequest(ctx, req); err != nil {
		return 0, fmt.Errorf("create %s notification: %w", group, err)
	}
	return len(recipients), nil
}

// ownedEvent loads the event and checks that organizerID owns it.
func (s *lotteryService) ownedEvent(ctx context.Context, eventID, organizerID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.OwnedBy(organizerID) {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *lotteryService) RunSelection(ctx context.Context, eventID, organizerID string) (int, error) {
	if _, err := s.ownedEvent(ctx, eventID, organizerID); err != nil {
		return 0, err
	}
	return s.Select(ctx, eventID)
}

func (s *lotteryService) RunReplacement(ctx context.Context, eventID, organizerID string) (int, error) {
	event, err := s.ownedEvent(ctx, eventID, organizerID)
	if err != nil {
		return 0, err
	}
	// capacity bounds the request; the open-slot cap inside Replace does the rest
	return s.Replace(ctx, eventID, event.Capacity)
}

func (s *lotteryService) RunClose(ctx context.Context, eventID, organizerID string) (int, error) {
	if _, err := s.ownedEvent(ctx, eventID, organizerID); err != nil {
		return 0, err
	}
	return s.Close(ctx, eventID)
}
