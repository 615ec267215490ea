package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventease/internal/domain"
)

type notificationPreferenceRepository struct {
	DB *sql.DB
}

func NewNotificationPreferenceRepository(db *sql.DB) domain.NotificationPreferenceRepository {
	return &notificationPreferenceRepository{
		DB: db,
	}
}

func (r *notificationPreferenceRepository) Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	query := `
		SELECT user_id, notify_invited, notify_not_invited, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`
	p := &domain.NotificationPreferences{}
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(&p.UserID, &p.NotifyInvited, &p.NotifyNotInvited, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultNotificationPreferences(userID), nil
		}
		return nil, classify(err)
	}
	return p, nil
}

func (r *notificationPreferenceRepository) Upsert(ctx context.Context, p *domain.NotificationPreferences) error {
	query := `
		INSERT INTO notification_preferences (user_id, notify_invited, notify_not_invited, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET notify_invited = EXCLUDED.notify_invited,
			notify_not_invited = EXCLUDED.notify_not_invited,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.DB.ExecContext(ctx, query, p.UserID, p.NotifyInvited, p.NotifyNotInvited, p.UpdatedAt)
	return classify(err)
}
