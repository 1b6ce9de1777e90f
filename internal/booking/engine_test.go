package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"gearshare/internal/evidence"
)

// memStore is an in-memory Store for engine tests. It mirrors the atomic
// contract: a decide or Record error writes nothing, a success appends the
// event and updates the projection together.
type memStore struct {
	mu       sync.Mutex
	bookings map[string]*Booking
	events   map[string][]StatusEvent
	nextID   int
	nextEvID int64
	now      time.Time
}

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[string]*Booking),
		events:   make(map[string][]StatusEvent),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Minute)
	return s.now
}

func (s *memStore) Create(_ context.Context, nb NewBooking, first EventDraft) (*Booking, *StatusEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.tick()
	b := &Booking{
		ID:            fmt.Sprintf("booking-%d", s.nextID),
		ListingID:     nb.ListingID,
		RenterID:      nb.RenterID,
		OwnerID:       "owner-1",
		StartDate:     nb.StartDate,
		EndDate:       nb.EndDate,
		CurrentStatus: first.Status,
		Note:          nb.Note,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.bookings[b.ID] = b
	ev := s.append(b.ID, first, now)
	return copyBooking(b), ev, nil
}

func (s *memStore) Transition(ctx context.Context, bookingID string, decide DecideFunc) (*Booking, *StatusEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, nil, ErrBookingNotFound
	}

	events := s.events[bookingID]
	enteredAt := b.CreatedAt
	if len(events) > 0 {
		enteredAt = events[len(events)-1].CreatedAt
	}

	draft, err := decide(copyBooking(b), enteredAt)
	if err != nil {
		return nil, nil, err
	}
	if draft.Record != nil {
		if err := draft.Record(ctx, nil); err != nil {
			return nil, nil, err
		}
	}

	now := s.tick()
	ev := s.append(bookingID, *draft, now)
	b.CurrentStatus = draft.Status
	b.UpdatedAt = now
	return copyBooking(b), ev, nil
}

func (s *memStore) Get(_ context.Context, bookingID string) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return copyBooking(b), nil
}

func (s *memStore) append(bookingID string, d EventDraft, at time.Time) *StatusEvent {
	s.nextEvID++
	ev := StatusEvent{
		ID:          s.nextEvID,
		BookingID:   bookingID,
		Status:      d.Status,
		ActorRole:   d.ActorRole,
		ActorUserID: d.ActorUserID,
		Note:        d.Note,
		CreatedAt:   at,
	}
	s.events[bookingID] = append(s.events[bookingID], ev)
	return &ev
}

func (s *memStore) ledger(bookingID string) []StatusEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatusEvent, len(s.events[bookingID]))
	copy(out, s.events[bookingID])
	return out
}

func copyBooking(b *Booking) *Booking {
	cp := *b
	return &cp
}

type fakePayments struct{ settled map[string]bool }

func (f fakePayments) Settled(_ context.Context, bookingID string) (bool, error) {
	return f.settled[bookingID], nil
}

type fakeEvidence struct {
	phases map[string]map[evidence.Phase]bool
}

func (f fakeEvidence) HasPhase(_ context.Context, bookingID string, phase evidence.Phase) (bool, error) {
	return f.phases[bookingID][phase], nil
}

func (f fakeEvidence) add(bookingID string, phase evidence.Phase) {
	if f.phases[bookingID] == nil {
		f.phases[bookingID] = make(map[evidence.Phase]bool)
	}
	f.phases[bookingID][phase] = true
}

type fixture struct {
	store    *memStore
	payments fakePayments
	evidence fakeEvidence
	engine   *Engine
	booking  *Booking
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	payments := fakePayments{settled: make(map[string]bool)}
	ev := fakeEvidence{phases: make(map[string]map[evidence.Phase]bool)}
	engine := NewEngine(store, payments, ev)

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	b, first, err := engine.CreateBooking(context.Background(), NewBooking{
		ListingID: "listing-1",
		RenterID:  "renter-1",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 4),
		Note:      "camping trip",
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if b.CurrentStatus != StatusPending {
		t.Fatalf("expected PENDING, got %s", b.CurrentStatus)
	}
	if first.Status != StatusPending || first.ActorRole != RoleRenter {
		t.Fatalf("expected first event PENDING/renter, got %s/%s", first.Status, first.ActorRole)
	}
	return &fixture{store: store, payments: payments, evidence: ev, engine: engine, booking: b}
}

// request is a transition shorthand for the test scenarios.
func (f *fixture) request(t *testing.T, role Role, userID string, target Status) (*TransitionResult, error) {
	t.Helper()
	return f.engine.RequestTransition(context.Background(), TransitionRequest{
		BookingID:   f.booking.ID,
		Target:      target,
		Role:        role,
		ActorUserID: userID,
	})
}

func (f *fixture) mustRequest(t *testing.T, role Role, userID string, target Status) *TransitionResult {
	t.Helper()
	res, err := f.request(t, role, userID, target)
	if err != nil {
		t.Fatalf("%s -> %s as %s: %v", f.mustGet(t).CurrentStatus, target, role, err)
	}
	return res
}

func (f *fixture) mustGet(t *testing.T) *Booking {
	t.Helper()
	b, err := f.engine.Get(context.Background(), f.booking.ID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	return b
}

func TestCreateBooking_RejectsReversedDates(t *testing.T) {
	f := newFixture(t)
	start := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	_, _, err := f.engine.CreateBooking(context.Background(), NewBooking{
		ListingID: "listing-1",
		RenterID:  "renter-1",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, -2),
	})
	if err == nil {
		t.Fatalf("expected error for end before start")
	}
}

func TestRequestTransition_OwnerAccepts(t *testing.T) {
	f := newFixture(t)
	res := f.mustRequest(t, RoleOwner, "owner-1", StatusAccepted)
	if res.PreviousStatus != StatusPending || res.NewStatus != StatusAccepted {
		t.Fatalf("expected PENDING -> ACCEPTED, got %s -> %s", res.PreviousStatus, res.NewStatus)
	}
	if res.Event.ActorUserID == nil || *res.Event.ActorUserID != "owner-1" {
		t.Fatalf("expected actor user id on event")
	}
}

func TestRequestTransition_WrongUserForbidden(t *testing.T) {
	f := newFixture(t)
	if _, err := f.request(t, RoleOwner, "someone-else", StatusAccepted); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	// Renter claiming the owner role is rejected even though the target is
	// legal for owners.
	if _, err := f.request(t, RoleOwner, "renter-1", StatusAccepted); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if f.mustGet(t).CurrentStatus != StatusPending {
		t.Fatalf("failed request must not change state")
	}
}

func TestRequestTransition_IllegalTransitionRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.request(t, RoleRenter, "renter-1", StatusAccepted)
	var tna *TransitionNotAllowedError
	if !errors.As(err, &tna) {
		t.Fatalf("expected TransitionNotAllowedError, got %v", err)
	}
	if tna.From != StatusPending || tna.Role != RoleRenter || tna.Target != StatusAccepted {
		t.Fatalf("error triple = (%s, %s, %s)", tna.From, tna.Role, tna.Target)
	}
	if got := len(f.store.ledger(f.booking.ID)); got != 1 {
		t.Fatalf("failed request must not append to ledger, got %d entries", got)
	}
}

func TestRequestTransition_PaymentGuardBeforePickup(t *testing.T) {
	f := newFixture(t)
	f.mustRequest(t, RoleOwner, "owner-1", StatusAccepted)

	if _, err := f.request(t, RoleSystem, "", StatusPickup); !errors.Is(err, ErrPaymentRequired) {
		t.Fatalf("expected ErrPaymentRequired, got %v", err)
	}
	if f.mustGet(t).CurrentStatus != StatusAccepted {
		t.Fatalf("guard failure must leave state untouched")
	}

	f.payments.settled[f.booking.ID] = true
	res := f.mustRequest(t, RoleSystem, "", StatusPickup)
	if res.NewStatus != StatusPickup {
		t.Fatalf("expected PICKUP, got %s", res.NewStatus)
	}
	if res.Event.ActorUserID != nil {
		t.Fatalf("system event must not carry an actor user id")
	}
}

// Legality is checked before guards: a renter attempt that is both illegal and
// missing evidence fails as an illegal transition, not as missing evidence.
func TestRequestTransition_LegalityCheckedBeforeGuards(t *testing.T) {
	f := newFixture(t)
	f.mustRequest(t, RoleOwner, "owner-1", StatusAccepted)
	f.payments.settled[f.booking.ID] = true
	f.mustRequest(t, RoleSystem, "", StatusPickup)

	// IN_PROGRESS is not reachable for the renter from PICKUP, and no pickup
	// photo exists either.
	_, err := f.request(t, RoleRenter, "renter-1", StatusInProgress)
	var tna *TransitionNotAllowedError
	if !errors.As(err, &tna) {
		t.Fatalf("expected TransitionNotAllowedError, got %v", err)
	}
}

func TestRequestTransition_EvidenceGuardOnRenterPickup(t *testing.T) {
	f := newFixture(t)
	f.mustRequest(t, RoleOwner, "owner-1", StatusAccepted)
	f.payments.settled[f.booking.ID] = true
	f.mustRequest(t, RoleSystem, "", StatusPickup)

	if _, err := f.request(t, RoleRenter, "renter-1", StatusPickupRenter); !errors.Is(err, ErrEvidenceRequired) {
		t.Fatalf("expected ErrEvidenceRequired, got %v", err)
	}

	f.evidence.add(f.booking.ID, evidence.PhasePickup)
	res := f.mustRequest(t, RoleRenter, "renter-1", StatusPickupRenter)
	if res.NewStatus != StatusPickupRenter {
		t.Fatalf("expected PICKUP_RENTER, got %s", res.NewStatus)
	}
}

// Dual-confirmation convergence: owner-first and renter-first orders both end
// in IN_PROGRESS with a two-step history from PICKUP. The owner-first order
// includes the renter being blocked for a missing photo, uploading it, and
// succeeding.
func TestDualConfirmation_PickupConvergence(t *testing.T) {
	toPickup := func(f *fixture) {
		f.mustRequest(t, RoleOwner, "owner-1", StatusAccepted)
		f.payments.settled[f.booking.ID] = true
		f.mustRequest(t, RoleSystem, "", StatusPickup)
	}

	// Owner first.
	f1 := newFixture(t)
	toPickup(f1)
	f1.mustRequest(t, RoleOwner, "owner-1", StatusPickupOwner)
	if _, err := f1.request(t, RoleRenter, "renter-1", StatusInProgress); !errors.Is(err, ErrEvidenceRequired) {
		t.Fatalf("expected ErrEvidenceRequired, got %v", err)
	}
	f1.evidence.add(f1.booking.ID, evidence.PhasePickup)
	f1.mustRequest(t, RoleRenter, "renter-1", StatusInProgress)

	// Renter first.
	f2 := newFixture(t)
	toPickup(f2)
	f2.evidence.add(f2.booking.ID, evidence.PhasePickup)
	f2.mustRequest(t, RoleRenter, "renter-1", StatusPickupRenter)
	f2.mustRequest(t, RoleRenter, "renter-1", StatusInProgress)

	for i, f := range []*fixture{f1, f2} {
		b := f.mustGet(t)
		if b.CurrentStatus != StatusInProgress {
			t.Fatalf("order %d: expected IN_PROGRESS, got %s", i, b.CurrentStatus)
		}
		events := f.store.ledger(f.booking.ID)
		// PENDING, ACCEPTED, PICKUP, one intermediate, IN_PROGRESS.
		if len(events) != 5 {
			t.Fatalf("order %d: expected 5 ledger entries, got %d", i, len(events))
		}
		if events[len(events)-1].Status != StatusInProgress {
			t.Fatalf("order %d: ledger tail %s", i, events[len(events)-1].Status)
		}
	}
}

func TestRequestTransition_SystemCancelsUnansweredPending(t *testing.T) {
	f := newFixture(t)
	res, err := f.request(t, RoleSystem, "", StatusCancelled)
	if err != nil {
		t.Fatalf("expected synthetic system cancellation to be admitted: %v", err)
	}
	if res.NewStatus != StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", res.NewStatus)
	}
}

func TestRequestTransition_TerminalClosure(t *testing.T) {
	f := newFixture(t)
	f.mustRequest(t, RoleRenter, "renter-1", StatusCancelled)

	targets := []Status{
		StatusPending, StatusAccepted, StatusDeclined, StatusCancelled,
		StatusPickup, StatusPickupOwner, StatusPickupRenter, StatusInProgress,
		StatusReturn, StatusReturnOwner, StatusReturnRenter,
		StatusCompleted, StatusReviewed, StatusDisputed, StatusDisputeResolved,
	}
	attempts := []struct {
		role Role
		user string
	}{
		{RoleRenter, "renter-1"},
		{RoleOwner, "owner-1"},
		{RoleSystem, ""},
	}
	for _, a := range attempts {
		for _, target := range targets {
			if _, err := f.request(t, a.role, a.user, target); err == nil {
				t.Fatalf("CANCELLED booking accepted %s -> %s for %s", StatusCancelled, target, a.role)
			}
		}
	}
	if got := len(f.store.ledger(f.booking.ID)); got != 2 {
		t.Fatalf("ledger grew on rejected requests: %d entries", got)
	}
}

// The projection always matches the ledger tail after every successful
// transition.
func TestProjectionMatchesLedgerTail(t *testing.T) {
	f := newFixture(t)
	f.mustRequest(t, RoleOwner, "owner-1", StatusAccepted)
	f.payments.settled[f.booking.ID] = true
	f.mustRequest(t, RoleSystem, "", StatusPickup)
	f.evidence.add(f.booking.ID, evidence.PhasePickup)
	f.mustRequest(t, RoleRenter, "renter-1", StatusPickupRenter)
	f.mustRequest(t, RoleRenter, "renter-1", StatusInProgress)
	f.mustRequest(t, RoleSystem, "", StatusReturn)
	f.evidence.add(f.booking.ID, evidence.PhaseReturn)
	f.mustRequest(t, RoleRenter, "renter-1", StatusReturnRenter)
	f.mustRequest(t, RoleOwner, "owner-1", StatusCompleted)
	f.mustRequest(t, RoleRenter, "renter-1", StatusReviewed)

	b := f.mustGet(t)
	events := f.store.ledger(f.booking.ID)
	if tail := events[len(events)-1].Status; b.CurrentStatus != tail {
		t.Fatalf("projection %s disagrees with ledger tail %s", b.CurrentStatus, tail)
	}
	if b.CurrentStatus != StatusReviewed {
		t.Fatalf("expected REVIEWED, got %s", b.CurrentStatus)
	}
}

func TestRequestTransition_ReturnEvidenceGuard(t *testing.T) {
	f := newFixture(t)
	f.mustRequest(t, RoleOwner, "owner-1", StatusAccepted)
	f.payments.settled[f.booking.ID] = true
	f.mustRequest(t, RoleSystem, "", StatusPickup)
	f.evidence.add(f.booking.ID, evidence.PhasePickup)
	f.mustRequest(t, RoleRenter, "renter-1", StatusPickupRenter)
	f.mustRequest(t, RoleRenter, "renter-1", StatusInProgress)
	f.mustRequest(t, RoleSystem, "", StatusReturn)

	if _, err := f.request(t, RoleRenter, "renter-1", StatusReturnRenter); !errors.Is(err, ErrEvidenceRequired) {
		t.Fatalf("expected ErrEvidenceRequired, got %v", err)
	}
	// The owner-side confirmation carries no evidence guard.
	f.mustRequest(t, RoleOwner, "owner-1", StatusReturnOwner)
}

func TestRequestTransition_UnknownBooking(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{
		BookingID: "no-such-booking",
		Target:    StatusAccepted,
		Role:      RoleOwner,
	})
	if !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}
}

// A companion record commits or rolls back with the status event: a failing
// Record hook leaves the booking and its ledger untouched, a succeeding one
// runs exactly once alongside the append.
func TestRequestTransition_RecordAtomicWithEvent(t *testing.T) {
	f := newFixture(t)

	recordErr := errors.New("resolution insert failed")
	_, err := f.engine.RequestTransition(context.Background(), TransitionRequest{
		BookingID:   f.booking.ID,
		Target:      StatusAccepted,
		Role:        RoleOwner,
		ActorUserID: "owner-1",
		Record:      func(context.Context, pgx.Tx) error { return recordErr },
	})
	if !errors.Is(err, recordErr) {
		t.Fatalf("expected record error, got %v", err)
	}
	if got := f.mustGet(t).CurrentStatus; got != StatusPending {
		t.Fatalf("booking moved to %s despite failed record", got)
	}
	if n := len(f.store.ledger(f.booking.ID)); n != 1 {
		t.Fatalf("expected 1 ledger entry after failed record, got %d", n)
	}

	calls := 0
	res, err := f.engine.RequestTransition(context.Background(), TransitionRequest{
		BookingID:   f.booking.ID,
		Target:      StatusAccepted,
		Role:        RoleOwner,
		ActorUserID: "owner-1",
		Record:      func(context.Context, pgx.Tx) error { calls++; return nil },
	})
	if err != nil {
		t.Fatalf("transition with record: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected record to run once, ran %d times", calls)
	}
	if res.NewStatus != StatusAccepted {
		t.Fatalf("expected ACCEPTED, got %s", res.NewStatus)
	}
	if n := len(f.store.ledger(f.booking.ID)); n != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", n)
	}
}
