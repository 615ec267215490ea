package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"eventease/internal/domain"
)

const notificationColumns = `id, event_id, event_title, organizer_id, user_ids, title, message,
		group_type, status, attempts, created_at, processed_at`

func scanNotificationRequests(rows *sql.Rows) ([]*domain.NotificationRequest, error) {
	defer rows.Close()
	out := make([]*domain.NotificationRequest, 0)
	for rows.Next() {
		req := &domain.NotificationRequest{}
		var processedNull sql.NullTime
		if err := rows.Scan(&req.ID, &req.EventID, &req.EventTitle, &req.OrganizerID, pq.Array(&req.UserIDs),
			&req.Title, &req.Message, &req.GroupType, &req.Status, &req.Attempts, &req.CreatedAt, &processedNull); err != nil {
			return nil, err
		}
		if processedNull.Valid {
			req.ProcessedAt = &processedNull.Time
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

type notificationRequestRepository struct {
	DB *sql.DB
}

func NewNotificationRequestRepository(db *sql.DB) domain.NotificationRequestRepository {
	return &notificationRequestRepository{
		DB: db,
	}
}

func (r *notificationRequestRepository) ListPending(ctx context.Context, limit int) ([]*domain.NotificationRequest, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notification_requests
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, classify(err)
	}
	return scanNotificationRequests(rows)
}

func (r *notificationRequestRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.NotificationRequest, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notification_requests
		WHERE event_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, classify(err)
	}
	return scanNotificationRequests(rows)
}

func (r *notificationRequestRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE notification_requests
		SET status = 'PUBLISHED', processed_at = $2, attempts = attempts + 1
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := r.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		return classify(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *notificationRequestRepository) MarkAttemptFailed(ctx context.Context, id string, maxAttempts int, at time.Time) error {
	query := `
		UPDATE notification_requests
		SET attempts = attempts + 1,
			status = CASE WHEN attempts + 1 >= $2 THEN 'FAILED' ELSE status END,
			processed_at = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE processed_at END
		WHERE id = $1 AND status = 'PENDING'
	`
	result, err := r.DB.ExecContext(ctx, query, id, maxAttempts, at)
	if err != nil {
		return classify(err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
