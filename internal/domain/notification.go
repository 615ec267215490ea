package domain

import (
	"context"
	"time"
)

// NotificationGroup tells the delivery worker which audience a request targets.
type NotificationGroup string

const (
	GroupSelection   NotificationGroup = "selection"
	GroupReplacement NotificationGroup = "replacement"
	GroupDeadline    NotificationGroup = "deadline"
	GroupSorry       NotificationGroup = "sorry"
)

// ForInvitees reports whether the group addresses entrants who received an offer.
// Those messages obey NotifyInvited; the rest obey NotifyNotInvited.
func (g NotificationGroup) ForInvitees() bool {
	return g == GroupSelection || g == GroupReplacement
}

// NotificationRequestStatus is the relay state of a request record.
type NotificationRequestStatus string

const (
	NotificationPending   NotificationRequestStatus = "PENDING"
	NotificationPublished NotificationRequestStatus = "PUBLISHED"
	NotificationFailed    NotificationRequestStatus = "FAILED"
)

// NotificationRequest asks the external delivery worker to push one message to a
// group of users. This service only produces these records.
// swagger:model NotificationRequest
type NotificationRequest struct {
	ID          string                    `json:"id"`
	EventID     string                    `json:"event_id"`
	EventTitle  string                    `json:"event_title"`
	OrganizerID string                    `json:"organizer_id"`
	UserIDs     []string                  `json:"user_ids"`
	Title       string                    `json:"title"`
	Message     string                    `json:"message"`
	GroupType   NotificationGroup         `json:"group_type"`
	Status      NotificationRequestStatus `json:"status"`
	Attempts    int                       `json:"attempts"`
	CreatedAt   time.Time                 `json:"created_at"`
	ProcessedAt *time.Time                `json:"processed_at,omitempty"`
}

// NotificationPreferences holds a user's opt-outs. Both default to true.
// swagger:model NotificationPreferences
type NotificationPreferences struct {
	UserID           string    `json:"user_id"`
	NotifyInvited    bool      `json:"notify_invited"`
	NotifyNotInvited bool      `json:"notify_not_invited"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultNotificationPreferences returns the preferences of a user who never changed them.
func DefaultNotificationPreferences(userID string) *NotificationPreferences {
	return &NotificationPreferences{UserID: userID, NotifyInvited: true, NotifyNotInvited: true}
}

// Allows reports whether the user wants messages of group g.
func (p *NotificationPreferences) Allows(g NotificationGroup) bool {
	if g.ForInvitees() {
		return p.NotifyInvited
	}
	return p.NotifyNotInvited
}

// NotificationRequestRepository is the outbox side used by the relay.
type NotificationRequestRepository interface {
	ListPending(ctx context.Context, limit int) ([]*NotificationRequest, error)
	ListByEventID(ctx context.Context, eventID string) ([]*NotificationRequest, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	// MarkAttemptFailed bumps the attempt counter and moves the record to FAILED once
	// maxAttempts is reached.
	MarkAttemptFailed(ctx context.Context, id string, maxAttempts int, at time.Time) error
}

// NotificationPreferenceRepository stores per-user opt-outs.
type NotificationPreferenceRepository interface {
	// Get returns the stored preferences or the defaults when the user has none.
	Get(ctx context.Context, userID string) (*NotificationPreferences, error)
	Upsert(ctx context.Context, p *NotificationPreferences) error
}

// NotificationPublisher hands a request to the delivery worker (infrastructure port).
type NotificationPublisher interface {
	Publish(ctx context.Context, req *NotificationRequest) error
}

// NotificationPreferenceService defines preference reads and updates for the current user.
type NotificationPreferenceService interface {
	GetPreferences(ctx context.Context, userID string) (*NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, notifyInvited, notifyNotInvited *bool) (*NotificationPreferences, error)
}

// NotSelectedNoticeLead is how long before the event start NOT_SELECTED entrants
// receive their one-time message.
const NotSelectedNoticeLead = 48 * time.Hour
