package scheduler

import (
	"time"

	"gearshare/internal/booking"
)

// SweepBooking is the snapshot of a non-terminal booking a sweep inspects.
// StateEnteredAt is the timestamp of the booking's latest ledger entry.
type SweepBooking struct {
	ID             string
	Status         booking.Status
	StartDate      time.Time
	EndDate        time.Time
	StateEnteredAt time.Time
	PaymentSettled bool
}

// Windows holds the time thresholds of the automatic transition rules.
type Windows struct {
	// PendingResponse is how long the owner has to answer a request.
	PendingResponse time.Duration
	// PickupGrace is how long after the start date an unconfirmed pickup is
	// assumed to have happened anyway.
	PickupGrace time.Duration
	// ReturnOpens is how long before the end date the return phase opens.
	ReturnOpens time.Duration
	// ReturnGrace is how long after the end date an unconfirmed return falls
	// back to the owner-confirmed side.
	ReturnGrace time.Duration
	// ConfirmWindow is how long a half-confirmed return waits for the other
	// side before completing.
	ConfirmWindow time.Duration
}

func DefaultWindows() Windows {
	return Windows{
		PendingResponse: 48 * time.Hour,
		PickupGrace:     24 * time.Hour,
		ReturnOpens:     48 * time.Hour,
		ReturnGrace:     24 * time.Hour,
		ConfirmWindow:   72 * time.Hour,
	}
}

// Due decides whether a time-based rule applies to the booking at `now`, and
// if so which transition the system should request. Rules are idempotent by
// construction: if the booking already left the rule's from-state, the
// validator rejects the stale target and the sweep moves on.
func Due(w Windows, b SweepBooking, now time.Time) (target booking.Status, note string, ok bool) {
	switch b.Status {
	case booking.StatusPending:
		if !now.Before(b.StateEnteredAt.Add(w.PendingResponse)) {
			return booking.StatusCancelled, "cancelled automatically: no owner response", true
		}
	case booking.StatusAccepted:
		if !now.Before(b.StartDate) {
			if b.PaymentSettled {
				return booking.StatusPickup, "pickup window opened", true
			}
			return booking.StatusCancelled, "cancelled automatically: no payment by start date", true
		}
	case booking.StatusPickup:
		if !now.Before(b.StartDate.Add(w.PickupGrace)) {
			return booking.StatusInProgress, "pickup assumed after grace period", true
		}
	case booking.StatusInProgress:
		if !now.Before(b.EndDate.Add(-w.ReturnOpens)) {
			return booking.StatusReturn, "return window opened", true
		}
	case booking.StatusReturn:
		if !now.Before(b.EndDate.Add(w.ReturnGrace)) {
			return booking.StatusReturnOwner, "return assumed after grace period", true
		}
	case booking.StatusReturnOwner, booking.StatusReturnRenter:
		if !now.Before(b.StateEnteredAt.Add(w.ConfirmWindow)) {
			return booking.StatusCompleted, "completed automatically after confirmation window", true
		}
	}
	return "", "", false
}
