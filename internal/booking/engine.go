package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"gearshare/internal/evidence"
)

// PaymentSource answers whether a completed payment exists for a booking.
// The engine treats it as an opaque fact; payment processing lives elsewhere.
type PaymentSource interface {
	Settled(ctx context.Context, bookingID string) (bool, error)
}

// EvidenceSource answers whether at least one evidence photo of a phase
// exists for a booking. The engine never looks at photo content.
type EvidenceSource interface {
	HasPhase(ctx context.Context, bookingID string, phase evidence.Phase) (bool, error)
}

// EventDraft is the ledger entry a transition decision produces. Record, when
// set, runs inside the same transaction after the append and projection
// update, so companion records commit or roll back with the transition.
type EventDraft struct {
	Status      Status
	ActorRole   Role
	ActorUserID *string
	Note        string
	Record      func(ctx context.Context, tx pgx.Tx) error
}

// DecideFunc inspects a locked booking and returns the event to append, or an
// error to abort with nothing written. enteredAt is the timestamp of the
// latest ledger entry, i.e. when the booking entered its current status.
type DecideFunc func(b *Booking, enteredAt time.Time) (*EventDraft, error)

// Store is the engine's persistence boundary. Implementations must make each
// method an atomic unit: Transition serializes concurrent calls per booking
// and commits the ledger append together with the current-status projection;
// Create serializes per listing so two overlapping requests cannot both pass
// the conflict check.
type Store interface {
	Transition(ctx context.Context, bookingID string, decide DecideFunc) (*Booking, *StatusEvent, error)
	Create(ctx context.Context, nb NewBooking, first EventDraft) (*Booking, *StatusEvent, error)
	Get(ctx context.Context, bookingID string) (*Booking, error)
}

// TransitionRequest names a desired transition. ActorUserID is empty for
// system-initiated requests. Record, when set, is carried into the resulting
// EventDraft and commits with the transition.
type TransitionRequest struct {
	BookingID   string
	Target      Status
	Role        Role
	ActorUserID string
	Note        string
	Record      func(ctx context.Context, tx pgx.Tx) error
}

type TransitionResult struct {
	PreviousStatus Status       `json:"previousStatus"`
	NewStatus      Status       `json:"newStatus"`
	Event          *StatusEvent `json:"event"`
}

// Engine is the single gate for mutating booking state. Human actions and the
// deadline scheduler both go through RequestTransition, so both obey the same
// validation and guard logic.
type Engine struct {
	store    Store
	payments PaymentSource
	evidence EvidenceSource
}

func NewEngine(store Store, payments PaymentSource, evidence EvidenceSource) *Engine {
	return &Engine{store: store, payments: payments, evidence: evidence}
}

// CreateBooking creates a PENDING booking for the listing and date range,
// writing the first ledger entry in the same atomic unit. It fails with
// ErrDateConflict when the range overlaps a blocking booking.
func (e *Engine) CreateBooking(ctx context.Context, nb NewBooking) (*Booking, *StatusEvent, error) {
	if nb.EndDate.Before(nb.StartDate) {
		return nil, nil, errors.New("end date before start date")
	}
	renterID := nb.RenterID
	return e.store.Create(ctx, nb, EventDraft{
		Status:      StatusPending,
		ActorRole:   RoleRenter,
		ActorUserID: &renterID,
		Note:        nb.Note,
	})
}

// Get loads a booking by id.
func (e *Engine) Get(ctx context.Context, bookingID string) (*Booking, error) {
	return e.store.Get(ctx, bookingID)
}

// RequestTransition validates and applies one transition: authorization,
// role/state legality, guard predicates, then the atomic ledger append plus
// projection update. Any failure before the append leaves the booking
// untouched and is reported as its specific error kind.
func (e *Engine) RequestTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	var prev Status
	_, event, err := e.store.Transition(ctx, req.BookingID, func(b *Booking, enteredAt time.Time) (*EventDraft, error) {
		prev = b.CurrentStatus

		if err := authorize(b, req.Role, req.ActorUserID); err != nil {
			return nil, err
		}
		if !admissible(b.CurrentStatus, req.Role, req.Target) {
			return nil, &TransitionNotAllowedError{From: b.CurrentStatus, Role: req.Role, Target: req.Target}
		}
		if err := e.checkGuards(ctx, b, req.Role, req.Target); err != nil {
			return nil, err
		}

		var actor *string
		if req.Role != RoleSystem && req.ActorUserID != "" {
			id := req.ActorUserID
			actor = &id
		}
		return &EventDraft{
			Status:      req.Target,
			ActorRole:   req.Role,
			ActorUserID: actor,
			Note:        req.Note,
			Record:      req.Record,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &TransitionResult{PreviousStatus: prev, NewStatus: event.Status, Event: event}, nil
}

// admissible is the transition table plus the one synthetic case the table
// leaves out: the engine cancelling a PENDING booking the owner never
// answered, on behalf of the system.
func admissible(from Status, role Role, to Status) bool {
	if CanTransition(from, role, to) {
		return true
	}
	return role == RoleSystem && from == StatusPending && to == StatusCancelled
}

func authorize(b *Booking, role Role, actorUserID string) error {
	switch role {
	case RoleSystem:
		return nil
	case RoleRenter:
		if actorUserID == "" || actorUserID != b.RenterID {
			return ErrNotAuthorized
		}
	case RoleOwner:
		if actorUserID == "" || actorUserID != b.OwnerID {
			return ErrNotAuthorized
		}
	default:
		return ErrNotAuthorized
	}
	return nil
}

// checkGuards evaluates the external-fact guards of a transition. Called
// strictly after legality and strictly before the ledger write. System-actor
// fallbacks carry no evidence guard: the guards are keyed on the acting role.
func (e *Engine) checkGuards(ctx context.Context, b *Booking, role Role, target Status) error {
	if target == StatusPickup {
		settled, err := e.payments.Settled(ctx, b.ID)
		if err != nil {
			return err
		}
		if !settled {
			return ErrPaymentRequired
		}
	}

	if role == RoleRenter {
		needsPickupPhoto := (b.CurrentStatus == StatusPickup && target == StatusPickupRenter) ||
			(b.CurrentStatus == StatusPickupOwner && target == StatusInProgress)
		needsReturnPhoto := b.CurrentStatus == StatusReturn && target == StatusReturnRenter

		switch {
		case needsPickupPhoto:
			ok, err := e.evidence.HasPhase(ctx, b.ID, evidence.PhasePickup)
			if err != nil {
				return err
			}
			if !ok {
				return ErrEvidenceRequired
			}
		case needsReturnPhoto:
			ok, err := e.evidence.HasPhase(ctx, b.ID, evidence.PhaseReturn)
			if err != nil {
				return err
			}
			if !ok {
				return ErrEvidenceRequired
			}
		}
	}
	return nil
}
