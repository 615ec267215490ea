package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventease/internal/domain"
)

const eventColumns = `id, organizer_id, organizer_email, title, description, capacity,
		registration_start, registration_end, invitation_deadline, starts_at, waitlist_count,
		selection_processed, selection_notification_sent, deadline_notification_sent,
		sorry_notification_sent, non_selected_processed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull sql.NullString
	var deadlineNull, startsNull sql.NullTime
	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.OrganizerEmail, &e.Title, &descNull, &e.Capacity,
		&e.RegistrationStart, &e.RegistrationEnd, &deadlineNull, &startsNull, &e.WaitlistCount,
		&e.SelectionProcessed, &e.SelectionNotificationSent, &e.DeadlineNotificationSent,
		&e.SorryNotificationSent, &e.NonSelectedProcessed, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if descNull.Valid {
		e.Description = &descNull.String
	}
	if deadlineNull.Valid {
		e.InvitationDeadline = &deadlineNull.Time
	}
	if startsNull.Valid {
		e.StartsAt = &startsNull.Time
	}
	return e, nil
}

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (organizer_id, organizer_email, title, description, capacity,
			registration_start, registration_end, invitation_deadline, starts_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.OrganizerID, e.OrganizerEmail, e.Title, nullString(e.Description), e.Capacity,
		e.RegistrationStart, e.RegistrationEnd, nullTime(e.InvitationDeadline), nullTime(e.StartsAt),
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	return classify(err)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(err)
	}
	return e, nil
}

func (r *eventRepository) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM events
		WHERE organizer_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, organizerID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, classify(rows.Err())
}

func (r *eventRepository) ListDueForSelection(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		SELECT id FROM events
		WHERE NOT selection_processed
		  AND registration_end <= $1
		  AND (starts_at IS NULL OR starts_at > $1)
		ORDER BY registration_end
	`
	return r.listIDs(ctx, query, now)
}

func (r *eventRepository) ListWithExpiredInvitations(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT e.id FROM events e
		JOIN invitations i ON i.event_id = e.id
		WHERE i.status = 'PENDING'
		  AND (e.starts_at IS NULL OR e.starts_at > $1)
		  AND (i.expires_at <= $1 OR (e.invitation_deadline IS NOT NULL AND e.invitation_deadline <= $1))
	`
	return r.listIDs(ctx, query, now)
}

func (r *eventRepository) ListDueForClose(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		SELECT id FROM events
		WHERE selection_processed
		  AND NOT non_selected_processed
		  AND (invitation_deadline <= $1 OR starts_at <= $2)
	`
	return r.listIDs(ctx, query, now, now.Add(domain.NotSelectedNoticeLead))
}

func (r *eventRepository) ListDueForSorry(ctx context.Context, now time.Time, window time.Duration) ([]string, error) {
	query := `
		SELECT id FROM events
		WHERE non_selected_processed
		  AND NOT sorry_notification_sent
		  AND starts_at > $1
		  AND starts_at <= $2
	`
	return r.listIDs(ctx, query, now, now.Add(window))
}

func (r *eventRepository) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, classify(rows.Err())
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
