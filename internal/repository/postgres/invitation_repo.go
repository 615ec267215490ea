package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventease/internal/domain"
)

const invitationColumns = `id, event_id, entrant_id, status, is_replacement, issued_at, expires_at, responded_at`

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	var respondedNull sql.NullTime
	if err := row.Scan(&inv.ID, &inv.EventID, &inv.EntrantID, &inv.Status, &inv.IsReplacement,
		&inv.IssuedAt, &inv.ExpiresAt, &respondedNull); err != nil {
		return nil, err
	}
	if respondedNull.Valid {
		inv.RespondedAt = &respondedNull.Time
	}
	return inv, nil
}

func scanInvitations(rows *sql.Rows) ([]*domain.Invitation, error) {
	defer rows.Close()
	invs := make([]*domain.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return invs, nil
}

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{
		DB: db,
	}
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(err)
	}
	return inv, nil
}

func (r *invitationRepository) ListByEntrant(ctx context.Context, entrantID string, status domain.InvitationStatus) ([]*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + `
		FROM invitations
		WHERE entrant_id = $1 AND ($2::text = '' OR status = $2)
		ORDER BY issued_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, entrantID, string(status))
	if err != nil {
		return nil, classify(err)
	}
	return scanInvitations(rows)
}

func (r *invitationRepository) ListByEvent(ctx context.Context, eventID string, p domain.PaginationParams) ([]*domain.Invitation, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM invitations WHERE event_id = $1`, eventID).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}
	query := `SELECT ` + invitationColumns + `
		FROM invitations
		WHERE event_id = $1
		ORDER BY issued_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, classify(err)
	}
	invs, err := scanInvitations(rows)
	if err != nil {
		return nil, 0, err
	}
	return invs, total, nil
}
