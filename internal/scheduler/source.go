package scheduler

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"gearshare/internal/booking"
)

// PGSource reads sweep candidates from Postgres. The snapshot is advisory
// only: the engine re-reads and re-validates everything under the booking's
// row lock, so a stale snapshot at worst produces a rejected request.
type PGSource struct {
	db *pgxpool.Pool
}

func NewPGSource(db *pgxpool.Pool) *PGSource {
	return &PGSource{db: db}
}

func (s *PGSource) ListNonTerminal(ctx context.Context) ([]SweepBooking, error) {
	const q = `
SELECT b.id, b.current_status, b.start_date, b.end_date,
       COALESCE((SELECT e.created_at
                 FROM status_events e
                 WHERE e.booking_id = b.id
                 ORDER BY e.created_at DESC, e.id DESC
                 LIMIT 1), b.created_at) AS entered_at,
       EXISTS (SELECT 1 FROM payments p WHERE p.booking_id = b.id AND p.status = 'completed') AS paid
FROM bookings b
WHERE b.current_status = ANY($1)
ORDER BY b.created_at ASC
`
	rows, err := s.db.Query(ctx, q, booking.NonTerminalStatusStrings())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SweepBooking
	for rows.Next() {
		var b SweepBooking
		var status string
		if err := rows.Scan(&b.ID, &status, &b.StartDate, &b.EndDate, &b.StateEnteredAt, &b.PaymentSettled); err != nil {
			return nil, err
		}
		st, err := booking.ParseStatus(status)
		if err != nil {
			// Alias statuses from hand-edited data are not engine states;
			// skip rather than feed them to the rules.
			continue
		}
		b.Status = st
		out = append(out, b)
	}
	return out, rows.Err()
}
