package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvitationNotPending = errors.New("invitation is no longer pending")
	ErrInvitationExpired    = errors.New("invitation has expired")
	ErrDuplicateInvitation  = errors.New("entrant already has a pending invitation for this event")
)

const (
	// InitialResponseWindow is how long a first-round invitation stays open.
	InitialResponseWindow = 7 * 24 * time.Hour
	// MinReplacementWindow is the shortest response window a replacement invitation gets.
	MinReplacementWindow = 2 * 24 * time.Hour
)

// InvitationStatus is the lifecycle state of an invitation. PENDING is the only
// mutable state.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
)

// Valid reports whether s is one of the known statuses.
func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined:
		return true
	}
	return false
}

// Invitation is a time-boxed offer of a place to a selected entrant.
// swagger:model Invitation
type Invitation struct {
	ID            string           `json:"id"`
	EventID       string           `json:"event_id"`
	EntrantID     string           `json:"entrant_id"`
	Status        InvitationStatus `json:"status"`
	IsReplacement bool             `json:"is_replacement"`
	IssuedAt      time.Time        `json:"issued_at"`
	ExpiresAt     time.Time        `json:"expires_at"`
	RespondedAt   *time.Time       `json:"responded_at,omitempty"`
}

// NewInvitation returns a PENDING invitation.
func NewInvitation(id, eventID, entrantID string, issuedAt, expiresAt time.Time, replacement bool) *Invitation {
	return &Invitation{
		ID:            id,
		EventID:       eventID,
		EntrantID:     entrantID,
		Status:        InvitationPending,
		IsReplacement: replacement,
		IssuedAt:      issuedAt,
		ExpiresAt:     expiresAt,
	}
}

// Expired reports whether the response window has closed at now.
func (i *Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// InitialExpiry is the expiry of an invitation issued by the first selection round.
func InitialExpiry(now time.Time) time.Time {
	return now.Add(InitialResponseWindow)
}

// ReplacementExpiry is the earliest of now+7d, the event's invitation deadline and
// its start, but never sooner than now+2d.
func ReplacementExpiry(now time.Time, e *Event) time.Time {
	expiry := now.Add(InitialResponseWindow)
	if e.InvitationDeadline != nil && e.InvitationDeadline.Before(expiry) {
		expiry = *e.InvitationDeadline
	}
	if e.StartsAt != nil && e.StartsAt.Before(expiry) {
		expiry = *e.StartsAt
	}
	if floor := now.Add(MinReplacementWindow); expiry.Before(floor) {
		expiry = floor
	}
	return expiry
}

// InvitationRepository defines read access to invitations outside a lottery transaction.
type InvitationRepository interface {
	GetByID(ctx context.Context, id string) (*Invitation, error)
	// ListByEntrant lists the entrant's invitations, newest first. An empty status lists all.
	ListByEntrant(ctx context.Context, entrantID string, status InvitationStatus) ([]*Invitation, error)
	ListByEvent(ctx context.Context, eventID string, p PaginationParams) ([]*Invitation, int, error)
}

// InvitationService defines entrant responses to invitations and the listings around them.
type InvitationService interface {
	Accept(ctx context.Context, invitationID, entrantID string) (*Invitation, error)
	Decline(ctx context.Context, invitationID, entrantID string) (*Invitation, error)
	ListMyInvitations(ctx context.Context, entrantID string, status InvitationStatus) ([]*Invitation, error)
	ListEventInvitations(ctx context.Context, eventID, organizerID string, p PaginationParams) ([]*Invitation, int, error)
}
