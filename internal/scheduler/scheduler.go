package scheduler

import (
	"context"
	"log/slog"
	"time"

	"eventease/internal/domain"
)

type lotteryRunner interface {
	Select(ctx context.Context, eventID string) (int, error)
	Reap(ctx context.Context, eventID string) (int, error)
	Close(ctx context.Context, eventID string) (int, error)
	NotifyNotSelected(ctx context.Context, eventID string) (int, error)
}

type dueEventLister interface {
	ListDueForSelection(ctx context.Context, now time.Time) ([]string, error)
	ListWithExpiredInvitations(ctx context.Context, now time.Time) ([]string, error)
	ListDueForClose(ctx context.Context, now time.Time) ([]string, error)
	ListDueForSorry(ctx context.Context, now time.Time, window time.Duration) ([]string, error)
}

type outboxFlusher interface {
	Flush(ctx context.Context) (int, error)
}

// leaseChecker reports whether a per-event lease is free by briefly taking it..
type leaseChecker interface {
	TryAcquire(key string) (func(), bool)
}

// sweep pairs a query for due events with the lottery step run on each of them.
type sweep struct {
	name string
	list func(ctx context.Context, now time.Time) ([]string, error)
	run  func(ctx context.Context, eventID string) (int, error)
}

// Scheduler drives the time-based lottery steps: the first draw, expiry of
// unanswered invitations, closing the waitlist, the not-selected notice, and
// publishing queued notifications.
type Scheduler struct {
	sweeps   []sweep
	outbox   outboxFlusher
	leases   leaseChecker
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLeases skips events whose lease is currently held, for instance while an
// organizer-triggered run is in progress. Skipped events stay due.
func WithLeases(l leaseChecker) Option {
	return func(s *Scheduler) {
		s.leases = l
	}
}

// New returns a Scheduler. outbox may be nil when notifications are relayed elsewhere.
func New(
	lottery lotteryRunner,
	events dueEventLister,
	outbox outboxFlusher,
	interval time.Duration,
	logger *slog.Logger,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		sweeps: []sweep{
			{name: "select", list: events.ListDueForSelection, run: lottery.Select},
			{name: "reap", list: events.ListWithExpiredInvitations, run: lottery.Reap},
			{name: "close", list: events.ListDueForClose, run: lottery.Close},
			{
				name: "notify_not_selected",
				list: func(ctx context.Context, now time.Time) ([]string, error) {
					return events.ListDueForSorry(ctx, now, domain.NotSelectedNoticeLead)
				},
				run: lottery.NotifyNotSelected,
			},
		},
		outbox:   outbox,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs every sweep once. A failing event is logged and skipped; it stays
// due and is retried on the next tick.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	for _, sw := range s.sweeps {
		if ctx.Err() != nil {
			return
		}
		ids, err := sw.list(ctx, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to list due events", "sweep", sw.name, "err", err)
			continue
		}
		for _, id := range ids {
			if s.busy(id) {
				s.logger.DebugContext(ctx, "event busy, left for next tick", "sweep", sw.name, "event_id", id)
				continue
			}
			n, err := sw.run(ctx, id)
			if err != nil {
				s.logger.ErrorContext(ctx, "lottery step failed", "sweep", sw.name, "event_id", id, "err", err)
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "lottery step done", "sweep", sw.name, "event_id", id, "affected", n)
			}
		}
	}

	if s.outbox == nil {
		return
	}
	published, err := s.outbox.Flush(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to flush notification outbox", "err", err)
		return
	}
	if published > 0 {
		s.logger.InfoContext(ctx, "notifications published", "count", published)
	}
}

func (s *Scheduler) busy(eventID string) bool {
	if s.leases == nil {
		return false
	}
	release, ok := s.leases.TryAcquire(eventID)
	if !ok {
		return true
	}
	release()
	return false
}
