package booking

import "time"

// Booking is one rental agreement between a renter and a listing's owner.
// CurrentStatus is a projection of the most recent status event; the engine
// only ever writes it in the same transaction as the ledger append.
type Booking struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listingId"`
	RenterID      string    `json:"renterId"`
	OwnerID       string    `json:"ownerId"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	CurrentStatus Status    `json:"currentStatus"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// StatusEvent is one immutable entry in a booking's status ledger.
// ActorUserID is nil for system-initiated transitions.
type StatusEvent struct {
	ID          int64     `json:"id"`
	BookingID   string    `json:"bookingId"`
	Status      Status    `json:"status"`
	ActorRole   Role      `json:"actorRole"`
	ActorUserID *string   `json:"actorUserId,omitempty"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewBooking carries the fields of a booking request.
type NewBooking struct {
	ListingID string
	RenterID  string
	StartDate time.Time
	EndDate   time.Time
	Note      string
}
