package availability

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Range is a booked date range, boundaries inclusive.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// blockingStatuses are the current_status values that reserve a listing's
// date range against new conflicting bookings. PENDING blocks on purpose: it
// prevents two overlapping requests from racing each other before the owner
// answers.
var blockingStatuses = []string{
	"PENDING", "ACCEPTED",
	"PICKUP", "PICKUP_OWNER", "PICKUP_RENTER",
	"IN_PROGRESS",
	"RETURN", "RETURN_OWNER", "RETURN_RENTER",
}

// BlockingStatuses returns the blocking statuses. The returned slice is a copy.
func BlockingStatuses() []string {
	out := make([]string, len(blockingStatuses))
	copy(out, blockingStatuses)
	return out
}

func IsBlocking(status string) bool {
	for _, b := range blockingStatuses {
		if b == status {
			return true
		}
	}
	return false
}

// Overlaps reports whether two date ranges conflict. Boundaries count on both
// ends: a booking's return day is still blocked as a pickup day for the next
// renter, so ranges sharing only a boundary day conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// Querier is the subset of pgx querying shared by pools and transactions, so
// Conflicts can run standalone or inside the booking-creation transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conflicts reports whether the candidate range overlaps any booking in a
// blocking status for the listing. excludeBookingID, when non-nil, ignores
// that booking (used when re-checking an existing booking's own range).
func Conflicts(ctx context.Context, q Querier, listingID string, start, end time.Time, excludeBookingID *string) (bool, error) {
	const sql = `
SELECT EXISTS (
  SELECT 1
  FROM bookings
  WHERE listing_id = $1
    AND current_status = ANY($2)
    AND start_date <= $3
    AND end_date >= $4
    AND ($5::uuid IS NULL OR id <> $5::uuid)
)
`
	var conflict bool
	if err := q.QueryRow(ctx, sql, listingID, blockingStatuses, end, start, excludeBookingID).Scan(&conflict); err != nil {
		return false, err
	}
	return conflict, nil
}

// BlockedRanges returns the date ranges currently blocking a listing, for
// calendar display in the listing/search surfaces.
func BlockedRanges(ctx context.Context, db *pgxpool.Pool, listingID string) ([]Range, error) {
	const q = `
SELECT start_date, end_date
FROM bookings
WHERE listing_id = $1
  AND current_status = ANY($2)
ORDER BY start_date ASC
`
	rows, err := db.Query(ctx, q, listingID, blockingStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Range
	for rows.Next() {
		var r Range
		if err := rows.Scan(&r.Start, &r.End); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
