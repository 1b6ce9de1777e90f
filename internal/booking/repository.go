package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gearshare/internal/availability"
	"gearshare/internal/ledger"
	"gearshare/pkg/db"
)

// PGStore is the Postgres-backed Store. Per-booking serialization comes from
// `SELECT ... FOR UPDATE` on the booking row; per-listing serialization of
// creation comes from `FOR UPDATE` on the listing row, so two overlapping
// requests cannot both pass the conflict check.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{db: pool}
}

const bookingColumns = `id, listing_id, renter_id, owner_id, start_date, end_date, current_status, COALESCE(note,''), created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	if err := row.Scan(
		&b.ID, &b.ListingID, &b.RenterID, &b.OwnerID, &b.StartDate, &b.EndDate,
		&b.CurrentStatus, &b.Note, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PGStore) Get(ctx context.Context, bookingID string) (*Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(s.db.QueryRow(ctx, q, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// ListByUser returns the bookings a user is a party to, on either side,
// newest first.
func (s *PGStore) ListByUser(ctx context.Context, userID string) ([]Booking, error) {
	q := `
SELECT ` + bookingColumns + `
FROM bookings
WHERE renter_id = $1 OR owner_id = $1
ORDER BY created_at DESC
`
	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Transition runs decide against the row-locked booking with its current
// state loaded from the ledger, then appends the resulting event and updates
// the projection in the same transaction. A decide error rolls everything
// back and is returned unchanged.
func (s *PGStore) Transition(ctx context.Context, bookingID string, decide DecideFunc) (*Booking, *StatusEvent, error) {
	var (
		b  *Booking
		ev *StatusEvent
	)
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
		var err error
		b, err = scanBooking(tx.QueryRow(ctx, q, bookingID))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return err
		}

		// The ledger, not the cached column, is the source of truth.
		last, err := ledger.Latest(ctx, tx, bookingID)
		if err != nil {
			return fmt.Errorf("load ledger head: %w", err)
		}
		cur, err := ParseStatus(last.Status)
		if err != nil {
			return fmt.Errorf("ledger head for booking %s: %w", bookingID, err)
		}
		b.CurrentStatus = cur

		draft, err := decide(b, last.CreatedAt)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		entry, err := ledger.Insert(ctx, tx, bookingID, string(draft.Status), string(draft.ActorRole), draft.ActorUserID, draft.Note, now)
		if err != nil {
			return err
		}
		const upd = `UPDATE bookings SET current_status = $1, updated_at = $2 WHERE id = $3`
		if _, err := tx.Exec(ctx, upd, string(draft.Status), now, bookingID); err != nil {
			return err
		}
		if draft.Record != nil {
			if err := draft.Record(ctx, tx); err != nil {
				return err
			}
		}

		b.CurrentStatus = draft.Status
		b.UpdatedAt = now
		ev = entryToEvent(entry)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return b, ev, nil
}

// Create inserts a booking and its first ledger entry, if the date range
// passes the conflict check at creation time.
func (s *PGStore) Create(ctx context.Context, nb NewBooking, first EventDraft) (*Booking, *StatusEvent, error) {
	var (
		b  *Booking
		ev *StatusEvent
	)
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		// Lock the listing row so concurrent creations for this listing
		// serialize through the conflict check.
		var ownerID string
		const qListing = `SELECT owner_id FROM listings WHERE id = $1 FOR UPDATE`
		if err := tx.QueryRow(ctx, qListing, nb.ListingID).Scan(&ownerID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrListingNotFound
			}
			return err
		}

		conflict, err := availability.Conflicts(ctx, tx, nb.ListingID, nb.StartDate, nb.EndDate, nil)
		if err != nil {
			return err
		}
		if conflict {
			return ErrDateConflict
		}

		const qInsert = `
INSERT INTO bookings (listing_id, renter_id, owner_id, start_date, end_date, current_status, note)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + bookingColumns
		b, err = scanBooking(tx.QueryRow(ctx, qInsert,
			nb.ListingID, nb.RenterID, ownerID, nb.StartDate, nb.EndDate, string(first.Status), nb.Note,
		))
		if err != nil {
			return err
		}

		entry, err := ledger.Insert(ctx, tx, b.ID, string(first.Status), string(first.ActorRole), first.ActorUserID, first.Note, b.CreatedAt)
		if err != nil {
			return err
		}
		ev = entryToEvent(entry)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return b, ev, nil
}

func entryToEvent(e *ledger.Entry) *StatusEvent {
	return &StatusEvent{
		ID:          e.ID,
		BookingID:   e.BookingID,
		Status:      Status(e.Status),
		ActorRole:   Role(e.ActorRole),
		ActorUserID: e.ActorUserID,
		Note:        e.Note,
		CreatedAt:   e.CreatedAt,
	}
}
