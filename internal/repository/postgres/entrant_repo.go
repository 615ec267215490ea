package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventease/internal/domain"
)

const entrantColumns = `event_id, entrant_id, status, joined_at, updated_at, cancelled_at`

func scanEntrant(row rowScanner) (*domain.EntrantStatus, error) {
	s := &domain.EntrantStatus{}
	var cancelledNull sql.NullTime
	if err := row.Scan(&s.EventID, &s.EntrantID, &s.Status, &s.JoinedAt, &s.UpdatedAt, &cancelledNull); err != nil {
		return nil, err
	}
	if cancelledNull.Valid {
		s.CancelledAt = &cancelledNull.Time
	}
	return s, nil
}

type entrantRepository struct {
	DB *sql.DB
}

func NewEntrantRepository(db *sql.DB) domain.EntrantRepository {
	return &entrantRepository{
		DB: db,
	}
}

func (r *entrantRepository) GetByEventAndEntrant(ctx context.Context, eventID, entrantID string) (*domain.EntrantStatus, error) {
	query := `SELECT ` + entrantColumns + ` FROM event_entrants WHERE event_id = $1 AND entrant_id = $2`
	s, err := scanEntrant(r.DB.QueryRowContext(ctx, query, eventID, entrantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, classify(err)
	}
	return s, nil
}

func (r *entrantRepository) ListByEvent(ctx context.Context, eventID string, status domain.EntrantState, p domain.PaginationParams) ([]*domain.EntrantStatus, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM event_entrants WHERE event_id = $1 AND ($2::text = '' OR status = $2)`
	if err := r.DB.QueryRowContext(ctx, countQuery, eventID, string(status)).Scan(&total); err != nil {
		return nil, 0, classify(err)
	}

	query := `SELECT ` + entrantColumns + `
		FROM event_entrants
		WHERE event_id = $1 AND ($2::text = '' OR status = $2)
		ORDER BY joined_at, entrant_id
		LIMIT $3 OFFSET $4
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID, string(status), p.Limit(), p.Offset())
	if err != nil {
		return nil, 0, classify(err)
	}
	defer rows.Close()
	out := make([]*domain.EntrantStatus, 0)
	for rows.Next() {
		s, err := scanEntrant(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify(err)
	}
	return out, total, nil
}
