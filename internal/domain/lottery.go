package domain

import (
	"context"
	"time"
)

// MaxBatchSize caps the number of rows one statement may mutate.
const MaxBatchSize = 500

// LotteryStore runs lottery mutations atomically.
type LotteryStore interface {
	// WithinTx runs fn in one transaction. fn's error rolls the transaction back and is
	// returned unchanged (after store errors are classified).
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LotteryTx) error) error
}

// LotteryTx is the set of reads and conditional writes available inside a lottery
// transaction. Every state move only applies to rows still in the expected state, so
// re-running an operation never moves an entrant twice.
type LotteryTx interface {
	// LockEvent loads the event and holds its row lock until the transaction ends.
	LockEvent(ctx context.Context, eventID string) (*Event, error)

	GetEntrant(ctx context.Context, eventID, entrantID string) (*EntrantStatus, error)
	InsertEntrant(ctx context.Context, s *EntrantStatus) error
	// DeleteEntrant removes the row only when it is in state; reports whether it did.
	DeleteEntrant(ctx context.Context, eventID, entrantID string, state EntrantState) (bool, error)
	ListEntrantIDs(ctx context.Context, eventID string, state EntrantState) ([]string, error)
	CountEntrants(ctx context.Context, eventID string, state EntrantState) (int, error)
	// TransitionEntrants moves the listed entrants from one state to another and returns
	// the IDs that actually moved.
	TransitionEntrants(ctx context.Context, eventID string, entrantIDs []string, from, to EntrantState, at time.Time) ([]string, error)

	AdjustWaitlistCount(ctx context.Context, eventID string, delta int) error
	MarkSelectionProcessed(ctx context.Context, eventID string) error
	MarkNonSelectedProcessed(ctx context.Context, eventID string) error
	// ClaimFlag sets flag if it is still unset and reports whether this call set it.
	ClaimFlag(ctx context.Context, eventID string, flag EventFlag) (bool, error)

	GetInvitation(ctx context.Context, invitationID string) (*Invitation, error)
	// PendingInvitees returns the subset of entrantIDs already holding a PENDING invitation.
	PendingInvitees(ctx context.Context, eventID string, entrantIDs []string) (map[string]bool, error)
	CreateInvitations(ctx context.Context, invs []*Invitation) error
	// RespondToInvitation moves a PENDING invitation to status; false when it was no longer PENDING.
	RespondToInvitation(ctx context.Context, invitationID string, status InvitationStatus, at time.Time) (bool, error)
	// ExpireInvitations declines every PENDING invitation of the event whose expiry has
	// been reached, or all of them when deadlinePassed, and returns those it changed.
	ExpireInvitations(ctx context.Context, eventID string, now time.Time, deadlinePassed bool) ([]*Invitation, error)

	// FilterRecipients drops users who opted out of group.
	FilterRecipients(ctx context.Context, userIDs []string, group NotificationGroup) ([]string, error)
	CreateNotificationRequest(ctx context.Context, req *NotificationRequest) error
}

// EventLocker serialises lottery work on one event within the process.
type EventLocker interface {
	Acquire(ctx context.Context, eventID string) (release func(), err error)
}

// LotteryService runs the selection lifecycle of an event. Every method returns the
// number of entrants it affected; a call whose preconditions do not hold returns 0
// and no error.
type LotteryService interface {
	// Select draws up to capacity entrants from the waitlist once registration closed.
	Select(ctx context.Context, eventID string) (int, error)
	// Replace backfills up to cancelled places from the waitlist with replacement invitations.
	Replace(ctx context.Context, eventID string, cancelled int) (int, error)
	// Reap declines expired pending invitations and backfills the freed places.
	Reap(ctx context.Context, eventID string) (int, error)
	// Close moves entrants still waitlisted after the lottery closes to NOT_SELECTED.
	Close(ctx context.Context, eventID string) (int, error)
	// NotifyNotSelected sends the one-time message to NOT_SELECTED entrants shortly before the event.
	NotifyNotSelected(ctx context.Context, eventID string) (int, error)

	// Organizer-triggered variants check ownership before running.
	RunSelection(ctx context.Context, eventID, organizerID string) (int, error)
	RunReplacement(ctx context.Context, eventID, organizerID string) (int, error)
	RunClose(ctx context.Context, eventID, organizerID string) (int, error)
}

// ReplacementTrigger starts a replacement draw without making the caller wait for it.
type ReplacementTrigger interface {
	Trigger(ctx context.Context, eventID string, cancelled int)
}
