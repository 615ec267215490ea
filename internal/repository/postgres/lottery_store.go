package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"eventease/internal/domain"
)

type lotteryStore struct {
	DB *sql.DB
}

// NewLotteryStore returns a LotteryStore whose transactions hold the event row lock
// for every mutation they make.
func NewLotteryStore(db *sql.DB) domain.LotteryStore {
	return &lotteryStore{
		DB: db,
	}
}

func (s *lotteryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.LotteryTx) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, &lotteryTx{tx: tx}); err != nil {
		return classify(err)
	}
	if err = tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

type lotteryTx struct {
	tx *sql.Tx
}

func (t *lotteryTx) LockEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	e, err := scanEvent(t.tx.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (t *lotteryTx) GetEntrant(ctx context.Context, eventID, entrantID string) (*domain.EntrantStatus, error) {
	query := `SELECT ` + entrantColumns + ` FROM event_entrants WHERE event_id = $1 AND entrant_id = $2`
	s, err := scanEntrant(t.tx.QueryRowContext(ctx, query, eventID, entrantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (t *lotteryTx) InsertEntrant(ctx context.Context, s *domain.EntrantStatus) error {
	query := `
		INSERT INTO event_entrants (event_id, entrant_id, status, joined_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := t.tx.ExecContext(ctx, query, s.EventID, s.EntrantID, string(s.Status), s.JoinedAt, s.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyEntered
	}
	return err
}

func (t *lotteryTx) DeleteEntrant(ctx context.Context, eventID, entrantID string, state domain.EntrantState) (bool, error) {
	query := `DELETE FROM event_entrants WHERE event_id = $1 AND entrant_id = $2 AND status = $3`
	result, err := t.tx.ExecContext(ctx, query, eventID, entrantID, string(state))
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (t *lotteryTx) ListEntrantIDs(ctx context.Context, eventID string, state domain.EntrantState) ([]string, error) {
	query := `
		SELECT entrant_id FROM event_entrants
		WHERE event_id = $1 AND status = $2
		ORDER BY joined_at, entrant_id
	`
	return t.queryIDs(ctx, query, eventID, string(state))
}

func (t *lotteryTx) CountEntrants(ctx context.Context, eventID string, state domain.EntrantState) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM event_entrants WHERE event_id = $1 AND status = $2`
	if err := t.tx.QueryRowContext(ctx, query, eventID, string(state)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *lotteryTx) TransitionEntrants(ctx context.Context, eventID string, entrantIDs []string, from, to domain.EntrantState, at time.Time) ([]string, error) {
	query := `
		UPDATE event_entrants
		SET status = $1, updated_at = $2, cancelled_at = COALESCE($3, cancelled_at)
		WHERE event_id = $4 AND status = $5 AND entrant_id = ANY($6)
		RETURNING entrant_id
	`
	cancelledAt := sql.NullTime{Time: at, Valid: to == domain.StatusCancelled}
	moved := make([]string, 0, len(entrantIDs))
	for _, batch := range chunk(entrantIDs, domain.MaxBatchSize) {
		ids, err := t.queryIDs(ctx, query, string(to), at, cancelledAt, eventID, string(from), pq.Array(batch))
		if err != nil {
			return nil, fmt.Errorf("move entrants %s->%s: %w", from, to, err)
		}
		moved = append(moved, ids...)
	}
	return moved, nil
}

func (t *lotteryTx) AdjustWaitlistCount(ctx context.Context, eventID string, delta int) error {
	query := `UPDATE events SET waitlist_count = GREATEST(waitlist_count + $2, 0), updated_at = now() WHERE id = $1`
	_, err := t.tx.ExecContext(ctx, query, eventID, delta)
	return err
}

func (t *lotteryTx) MarkSelectionProcessed(ctx context.Context, eventID string) error {
	query := `UPDATE events SET selection_processed = TRUE, updated_at = now() WHERE id = $1`
	_, err := t.tx.ExecContext(ctx, query, eventID)
	return err
}

func (t *lotteryTx) MarkNonSelectedProcessed(ctx context.Context, eventID string) error {
	query := `UPDATE events SET non_selected_processed = TRUE, waitlist_count = 0, updated_at = now() WHERE id = $1`
	_, err := t.tx.ExecContext(ctx, query, eventID)
	return err
}

func (t *lotteryTx) ClaimFlag(ctx context.Context, eventID string, flag domain.EventFlag) (bool, error) {
	var column string
	switch flag {
	case domain.FlagSelectionNotificationSent, domain.FlagDeadlineNotificationSent, domain.FlagSorryNotificationSent:
		column = flag.String()
	default:
		return false, fmt.Errorf("%w: unknown event flag %d", domain.ErrInvalidInput, int(flag))
	}
	query := `UPDATE events SET ` + column + ` = TRUE, updated_at = now() WHERE id = $1 AND NOT ` + column
	result, err := t.tx.ExecContext(ctx, query, eventID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (t *lotteryTx) GetInvitation(ctx context.Context, invitationID string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`
	inv, err := scanInvitation(t.tx.QueryRowContext(ctx, query, invitationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func (t *lotteryTx) PendingInvitees(ctx context.Context, eventID string, entrantIDs []string) (map[string]bool, error) {
	query := `
		SELECT entrant_id FROM invitations
		WHERE event_id = $1 AND status = 'PENDING' AND entrant_id = ANY($2)
	`
	pending := make(map[string]bool)
	for _, batch := range chunk(entrantIDs, domain.MaxBatchSize) {
		ids, err := t.queryIDs(ctx, query, eventID, pq.Array(batch))
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			pending[id] = true
		}
	}
	return pending, nil
}

const invitationInsertArgs = 7

func (t *lotteryTx) CreateInvitations(ctx context.Context, invs []*domain.Invitation) error {
	for _, batch := range chunk(invs, domain.MaxBatchSize) {
		var b strings.Builder
		b.WriteString(`INSERT INTO invitations (id, event_id, entrant_id, status, is_replacement, issued_at, expires_at) VALUES `)
		args := make([]any, 0, len(batch)*invitationInsertArgs)
		for i, inv := range batch {
			if i > 0 {
				b.WriteString(", ")
			}
			n := i * invitationInsertArgs
			fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7)
			args = append(args, inv.ID, inv.EventID, inv.EntrantID, string(inv.Status), inv.IsReplacement, inv.IssuedAt, inv.ExpiresAt)
		}
		if _, err := t.tx.ExecContext(ctx, b.String(), args...); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateInvitation
			}
			return fmt.Errorf("insert invitations: %w", err)
		}
	}
	return nil
}

func (t *lotteryTx) RespondToInvitation(ctx context.Context, invitationID string, status domain.InvitationStatus, at time.Time) (bool, error) {
	query := `UPDATE invitations SET status = $2, responded_at = $3 WHERE id = $1 AND status = 'PENDING'`
	result, err := t.tx.ExecContext(ctx, query, invitationID, string(status), at)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func (t *lotteryTx) ExpireInvitations(ctx context.Context, eventID string, now time.Time, deadlinePassed bool) ([]*domain.Invitation, error) {
	query := `
		UPDATE invitations
		SET status = 'DECLINED', responded_at = $2
		WHERE event_id = $1 AND status = 'PENDING' AND (expires_at <= $2 OR $3)
		RETURNING ` + invitationColumns
	rows, err := t.tx.QueryContext(ctx, query, eventID, now, deadlinePassed)
	if err != nil {
		return nil, err
	}
	return scanInvitations(rows)
}

func (t *lotteryTx) FilterRecipients(ctx context.Context, userIDs []string, group domain.NotificationGroup) ([]string, error) {
	column := "notify_not_invited"
	if group.ForInvitees() {
		column = "notify_invited"
	}
	query := `SELECT user_id FROM notification_preferences WHERE user_id = ANY($1) AND NOT ` + column
	optedOut := make(map[string]bool)
	for _, batch := range chunk(userIDs, domain.MaxBatchSize) {
		ids, err := t.queryIDs(ctx, query, pq.Array(batch))
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			optedOut[id] = true
		}
	}
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if !optedOut[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *lotteryTx) CreateNotificationRequest(ctx context.Context, req *domain.NotificationRequest) error {
	query := `
		INSERT INTO notification_requests (id, event_id, event_title, organizer_id, user_ids, title, message,
			group_type, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := t.tx.ExecContext(ctx, query, req.ID, req.EventID, req.EventTitle, req.OrganizerID, pq.Array(req.UserIDs),
		req.Title, req.Message, string(req.GroupType), string(req.Status), req.Attempts, req.CreatedAt)
	return err
}

func (t *lotteryTx) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
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
	return ids, rows.Err()
}
