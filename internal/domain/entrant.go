package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrRegistrationClosed = errors.New("registration is not open")
	ErrAlreadyEntered     = errors.New("entrant already holds a non-waitlist place for this event")
)

// EntrantState is the position of an entrant within one event's lottery.
type EntrantState string

const (
	StatusWaitlisted  EntrantState = "WAITLISTED"
	StatusSelected    EntrantState = "SELECTED"
	StatusCancelled   EntrantState = "CANCELLED"
	StatusNotSelected EntrantState = "NOT_SELECTED"
)

// Valid reports whether s is one of the known states.
func (s EntrantState) Valid() bool {
	switch s {
	case StatusWaitlisted, StatusSelected, StatusCancelled, StatusNotSelected:
		return true
	}
	return false
}

// EntrantStatus places one entrant in exactly one state for one event.
// swagger:model EntrantStatus
type EntrantStatus struct {
	EventID     string       `json:"event_id"`
	EntrantID   string       `json:"entrant_id"`
	Status      EntrantState `json:"status"`
	JoinedAt    time.Time    `json:"joined_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CancelledAt *time.Time   `json:"cancelled_at,omitempty"`
}

// NewWaitlistEntry returns a WAITLISTED status for the entrant joining at now.
func NewWaitlistEntry(eventID, entrantID string, now time.Time) *EntrantStatus {
	return &EntrantStatus{
		EventID:   eventID,
		EntrantID: entrantID,
		Status:    StatusWaitlisted,
		JoinedAt:  now,
		UpdatedAt: now,
	}
}

// EntrantRepository defines read access to entrant statuses outside a lottery transaction.
type EntrantRepository interface {
	GetByEventAndEntrant(ctx context.Context, eventID, entrantID string) (*EntrantStatus, error)
	// ListByEvent returns one page of entrants in the given state and the total count.
	// An empty status lists every state.
	ListByEvent(ctx context.Context, eventID string, status EntrantState, p PaginationParams) ([]*EntrantStatus, int, error)
}

// WaitlistService defines entrant waitlist membership and the organizer view of it.
type WaitlistService interface {
	// Join adds the entrant to the waitlist. Returns (status, created, err): created is false when already waitlisted.
	Join(ctx context.Context, eventID, entrantID string) (*EntrantStatus, bool, error)
	Leave(ctx context.Context, eventID, entrantID string) error
	// MyEntry returns where the entrant stands in the event's lottery.
	MyEntry(ctx context.Context, eventID, entrantID string) (*EntrantStatus, error)
	ListEntrants(ctx context.Context, eventID, organizerID string, status EntrantState, p PaginationParams) ([]*EntrantStatus, int, error)
}
