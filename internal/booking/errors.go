package booking

import (
	"errors"
	"fmt"
)

// TransitionNotAllowedError reports an illegal (status, role, target)
// combination. It is the expected outcome of a benign race: whichever party
// loses the per-booking serialization sees it because the state already moved.
type TransitionNotAllowedError struct {
	From   Status
	Role   Role
	Target Status
}

func (e *TransitionNotAllowedError) Error() string {
	return fmt.Sprintf("transition not allowed: %s may not move booking from %s to %s", e.Role, e.From, e.Target)
}

var (
	// ErrPaymentRequired is returned when a transition into PICKUP is
	// requested without a completed payment on record.
	ErrPaymentRequired = errors.New("payment required before pickup")

	// ErrEvidenceRequired is returned when a renter confirmation is missing
	// the evidence photo for its phase.
	ErrEvidenceRequired = errors.New("evidence photo required")

	// ErrBookingNotFound is returned when the booking id resolves to nothing.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrListingNotFound is returned on creation against an unknown listing.
	ErrListingNotFound = errors.New("listing not found")

	// ErrNotAuthorized is returned when the acting user is not the party the
	// claimed role names on the booking.
	ErrNotAuthorized = errors.New("user is not a party to this booking in that role")

	// ErrDateConflict is returned when a new booking overlaps a blocking
	// booking for the same listing.
	ErrDateConflict = errors.New("dates conflict with an existing booking")
)
