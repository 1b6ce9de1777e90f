package listing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Listing is the slice of a marketplace listing the booking engine needs:
// ownership for authorization and an id for the availability index. DailyRate
// is stored for display; totals and taxes are someone else's job.
type Listing struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	DailyRate   decimal.Decimal `json:"dailyRate"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, ownerID, title, description string, dailyRate decimal.Decimal, currency string) (*Listing, error) {
	const q = `
INSERT INTO listings (owner_id, title, description, daily_rate, currency)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, owner_id, title, COALESCE(description,''), daily_rate::text, currency, created_at
`
	return scanListing(r.db.QueryRow(ctx, q, ownerID, title, description, dailyRate.String(), currency))
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Listing, error) {
	const q = `
SELECT id, owner_id, title, COALESCE(description,''), daily_rate::text, currency, created_at
FROM listings
WHERE id = $1
`
	return scanListing(r.db.QueryRow(ctx, q, id))
}

func (r *Repository) List(ctx context.Context) ([]Listing, error) {
	const q = `
SELECT id, owner_id, title, COALESCE(description,''), daily_rate::text, currency, created_at
FROM listings
ORDER BY created_at DESC
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

type row interface {
	Scan(dest ...any) error
}

func scanListing(r row) (*Listing, error) {
	var l Listing
	var rate string
	if err := r.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &rate, &l.Currency, &l.CreatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, err
	}
	l.DailyRate = d
	return &l, nil
}
