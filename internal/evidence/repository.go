package evidence

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Phase tags which part of the rental a photo documents.
type Phase string

const (
	PhasePickup  Phase = "pickup"
	PhaseReturn  Phase = "return"
	PhaseDispute Phase = "dispute"
)

func ParsePhase(s string) (Phase, bool) {
	switch Phase(s) {
	case PhasePickup, PhaseReturn, PhaseDispute:
		return Phase(s), true
	}
	return "", false
}

// Photo is the registration record of an uploaded evidence photo. Storage
// mechanics live elsewhere; this service only keeps the locator.
type Photo struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"bookingId"`
	UploaderID string    `json:"uploaderId"`
	Phase      Phase     `json:"phase"`
	StorageURL string    `json:"storageUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, bookingID, uploaderID string, phase Phase, storageURL string) (*Photo, error) {
	const q = `
INSERT INTO evidence_photos (booking_id, uploader_id, phase, storage_url)
VALUES ($1, $2, $3, $4)
RETURNING id, booking_id, uploader_id, phase, storage_url, created_at
`
	var p Photo
	if err := r.db.QueryRow(ctx, q, bookingID, uploaderID, string(phase), storageURL).Scan(
		&p.ID, &p.BookingID, &p.UploaderID, &p.Phase, &p.StorageURL, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListByBooking(ctx context.Context, bookingID string) ([]Photo, error) {
	const q = `
SELECT id, booking_id, uploader_id, phase, storage_url, created_at
FROM evidence_photos
WHERE booking_id = $1
ORDER BY created_at ASC
`
	rows, err := r.db.Query(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Photo
	for rows.Next() {
		var p Photo
		if err := rows.Scan(&p.ID, &p.BookingID, &p.UploaderID, &p.Phase, &p.StorageURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HasPhase reports whether at least one photo of the phase exists for the
// booking. The lifecycle engine consults this as a guard predicate.
func (r *Repository) HasPhase(ctx context.Context, bookingID string, phase Phase) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM evidence_photos WHERE booking_id = $1 AND phase = $2)`
	var ok bool
	if err := r.db.QueryRow(ctx, q, bookingID, string(phase)).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
