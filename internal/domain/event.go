package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Event is an offering with a fixed number of places that entrants compete for
// through the waitlist lottery.
// swagger:model Event
type Event struct {
	ID                 string     `json:"id"`
	OrganizerID        string     `json:"organizer_id"`
	OrganizerEmail     string     `json:"organizer_email,omitempty"`
	Title              string     `json:"title"`
	Description        *string    `json:"description,omitempty"`
	Capacity           int        `json:"capacity"`
	RegistrationStart  time.Time  `json:"registration_start"`
	RegistrationEnd    time.Time  `json:"registration_end"`
	InvitationDeadline *time.Time `json:"invitation_deadline,omitempty"`
	StartsAt           *time.Time `json:"starts_at,omitempty"`
	WaitlistCount      int        `json:"waitlist_count"`

	SelectionProcessed        bool `json:"selection_processed"`
	SelectionNotificationSent bool `json:"selection_notification_sent"`
	DeadlineNotificationSent  bool `json:"deadline_notification_sent"`
	SorryNotificationSent     bool `json:"sorry_notification_sent"`
	NonSelectedProcessed      bool `json:"non_selected_processed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEvent returns a new Event with the given fields. ID is typically set by the repository on create.
func NewEvent(organizerID, title string, capacity int, registrationStart, registrationEnd time.Time) *Event {
	return &Event{
		OrganizerID:       organizerID,
		Title:             title,
		Capacity:          capacity,
		RegistrationStart: registrationStart,
		RegistrationEnd:   registrationEnd,
	}
}

// Validate checks the timeline of the event. Capacity is not checked: a zero or
// negative capacity is a legal event that simply never selects anyone.
func (e *Event) Validate() error {
	var problems []string
	if strings.TrimSpace(e.OrganizerID) == "" {
		problems = append(problems, "organizer is required")
	}
	if strings.TrimSpace(e.Title) == "" {
		problems = append(problems, "title is required")
	}
	if !e.RegistrationEnd.After(e.RegistrationStart) {
		problems = append(problems, "registration_end must be after registration_start")
	}
	if e.StartsAt != nil && e.StartsAt.Before(e.RegistrationEnd) {
		problems = append(problems, "starts_at must not be before registration_end")
	}
	if e.InvitationDeadline != nil && e.InvitationDeadline.Before(e.RegistrationEnd) {
		problems = append(problems, "invitation_deadline must not be before registration_end")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// RegistrationOpen reports whether entrants may join the waitlist at now.
func (e *Event) RegistrationOpen(now time.Time) bool {
	return !now.Before(e.RegistrationStart) && now.Before(e.RegistrationEnd)
}

// RegistrationClosed reports whether the registration window has ended.
func (e *Event) RegistrationClosed(now time.Time) bool {
	return !now.Before(e.RegistrationEnd)
}

// Started reports whether the event start time has been reached.
func (e *Event) Started(now time.Time) bool {
	return e.StartsAt != nil && !now.Before(*e.StartsAt)
}

// DeadlinePassed reports whether the invitation response deadline has been reached.
func (e *Event) DeadlinePassed(now time.Time) bool {
	return e.InvitationDeadline != nil && !now.Before(*e.InvitationDeadline)
}

// ClosesAt is the moment the waitlist is closed out: the invitation deadline or
// NotSelectedNoticeLead before the start, whichever comes first. Nil when the
// event has neither.
func (e *Event) ClosesAt() *time.Time {
	var closes *time.Time
	if e.StartsAt != nil {
		t := e.StartsAt.Add(-NotSelectedNoticeLead)
		closes = &t
	}
	if e.InvitationDeadline != nil && (closes == nil || e.InvitationDeadline.Before(*closes)) {
		closes = e.InvitationDeadline
	}
	return closes
}

// OwnedBy reports whether userID organizes the event.
func (e *Event) OwnedBy(userID string) bool {
	return userID != "" && e.OrganizerID == userID
}

// EventFlag identifies a one-shot side effect recorded on the event row.
type EventFlag int

const (
	FlagSelectionNotificationSent EventFlag = iota + 1
	FlagDeadlineNotificationSent
	FlagSorryNotificationSent
)

func (f EventFlag) String() string {
	switch f {
	case FlagSelectionNotificationSent:
		return "selection_notification_sent"
	case FlagDeadlineNotificationSent:
		return "deadline_notification_sent"
	case FlagSorryNotificationSent:
		return "sorry_notification_sent"
	default:
		return fmt.Sprintf("EventFlag(%d)", int(f))
	}
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByOrganizerID(ctx context.Context, organizerID string) ([]*Event, error)

	// Sweep queries used by the scheduler. Each returns event IDs.
	ListDueForSelection(ctx context.Context, now time.Time) ([]string, error)
	ListWithExpiredInvitations(ctx context.Context, now time.Time) ([]string, error)
	ListDueForClose(ctx context.Context, now time.Time) ([]string, error)
	ListDueForSorry(ctx context.Context, now time.Time, window time.Duration) ([]string, error)
}

// EventService defines organizer-facing event operations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListMyEvents(ctx context.Context, organizerID string) ([]*Event, error)
}
