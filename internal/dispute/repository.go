package dispute

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Resolution records why an admin closed a dispute. The closing status event
// itself lives in the ledger; this table carries the human-readable reason the
// ledger note only summarizes.
type Resolution struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"bookingId"`
	ResolvedBy string    `json:"resolvedBy"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Insert writes a resolution inside the caller's transaction so it commits
// with the status event that closes the dispute.
func Insert(ctx context.Context, tx pgx.Tx, bookingID, resolvedBy, reason string) error {
	const q = `
INSERT INTO dispute_resolutions (booking_id, resolved_by, reason)
VALUES ($1, $2, $3)
`
	_, err := tx.Exec(ctx, q, bookingID, resolvedBy, reason)
	return err
}

func ListByBooking(ctx context.Context, db *pgxpool.Pool, bookingID string) ([]Resolution, error) {
	const q = `
SELECT id, booking_id, resolved_by, reason, created_at
FROM dispute_resolutions
WHERE booking_id = $1
ORDER BY created_at ASC
`
	rows, err := db.Query(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Resolution
	for rows.Next() {
		var res Resolution
		if err := rows.Scan(&res.ID, &res.BookingID, &res.ResolvedBy, &res.Reason, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
