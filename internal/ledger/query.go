package ledger

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ListByBooking returns a booking's full ledger, oldest first.
func ListByBooking(ctx context.Context, db *pgxpool.Pool, bookingID string) ([]Entry, error) {
	const q = `
SELECT id, booking_id, status, actor_role, actor_user_id, COALESCE(note,''), created_at
FROM status_events
WHERE booking_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := db.Query(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.BookingID, &e.Status, &e.ActorRole, &e.ActorUserID, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
