package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one payment reported by the external provider. The lifecycle
// engine only cares whether a completed one exists; amounts are stored as the
// provider sent them and never computed on.
type Record struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"bookingId"`
	Provider    string    `json:"provider"`
	ProviderRef string    `json:"providerRef"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RecordCompleted stores a completed payment idempotently: replaying the same
// provider reference is a no-op.
func (r *Repository) RecordCompleted(ctx context.Context, bookingID, provider, providerRef, amount string) error {
	const q = `
INSERT INTO payments (booking_id, provider, provider_ref, amount, status)
VALUES ($1, $2, $3, $4, 'completed')
ON CONFLICT (provider_ref) DO NOTHING
`
	_, err := r.db.Exec(ctx, q, bookingID, provider, providerRef, amount)
	return err
}

// Settled reports whether a completed payment exists for the booking. The
// engine consults this as the payment guard.
func (r *Repository) Settled(ctx context.Context, bookingID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM payments WHERE booking_id = $1 AND status = 'completed')`
	var ok bool
	if err := r.db.QueryRow(ctx, q, bookingID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
