package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// Entry is one row of a booking's append-only status ledger. Rows are never
// edited or deleted; ordering is (created_at, id) so same-timestamp entries
// keep their insertion order.
type Entry struct {
	ID          int64     `json:"id"`
	BookingID   string    `json:"bookingId"`
	Status      string    `json:"status"`
	ActorRole   string    `json:"actorRole"`
	ActorUserID *string   `json:"actorUserId,omitempty"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Insert appends an entry inside the caller's transaction. The caller is
// responsible for updating the booking's current-status projection in the
// same transaction.
func Insert(ctx context.Context, tx pgx.Tx, bookingID, status, actorRole string, actorUserID *string, note string, at time.Time) (*Entry, error) {
	const q = `
INSERT INTO status_events (booking_id, status, actor_role, actor_user_id, note, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, booking_id, status, actor_role, actor_user_id, COALESCE(note,''), created_at
`
	var e Entry
	if err := tx.QueryRow(ctx, q, bookingID, status, actorRole, actorUserID, note, at).Scan(
		&e.ID, &e.BookingID, &e.Status, &e.ActorRole, &e.ActorUserID, &e.Note, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

// Latest returns the most recent entry for a booking within the caller's
// transaction. This is the authoritative current state.
func Latest(ctx context.Context, tx pgx.Tx, bookingID string) (*Entry, error) {
	const q = `
SELECT id, booking_id, status, actor_role, actor_user_id, COALESCE(note,''), created_at
FROM status_events
WHERE booking_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1
`
	var e Entry
	if err := tx.QueryRow(ctx, q, bookingID).Scan(
		&e.ID, &e.BookingID, &e.Status, &e.ActorRole, &e.ActorUserID, &e.Note, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}
