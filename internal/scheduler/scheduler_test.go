package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"gearshare/internal/booking"
)

type fakeClock struct{ at time.Time }

func (c fakeClock) Now() time.Time { return c.at }

type fakeEngine struct {
	requests []booking.TransitionRequest
	fail     map[string]error // keyed by booking id
}

func (e *fakeEngine) RequestTransition(_ context.Context, req booking.TransitionRequest) (*booking.TransitionResult, error) {
	e.requests = append(e.requests, req)
	if err := e.fail[req.BookingID]; err != nil {
		return nil, err
	}
	return &booking.TransitionResult{NewStatus: req.Target}, nil
}

type fakeSource struct {
	bookings []SweepBooking
	err      error
}

func (s fakeSource) ListNonTerminal(_ context.Context) ([]SweepBooking, error) {
	return s.bookings, s.err
}

func TestSweep_AppliesDueRulesAsSystem(t *testing.T) {
	entered := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	engine := &fakeEngine{}
	s := &Scheduler{
		Engine:  engine,
		Windows: DefaultWindows(),
		Clock:   fakeClock{at: entered.Add(49 * time.Hour)},
		Source: fakeSource{bookings: []SweepBooking{
			{ID: "b1", Status: booking.StatusPending, StateEnteredAt: entered},
			{ID: "b2", Status: booking.StatusPending, StateEnteredAt: entered.Add(30 * time.Hour)},
		}},
	}

	applied, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected 1 applied transition, got %d", applied)
	}
	if len(engine.requests) != 1 {
		t.Fatalf("expected 1 engine request, got %d", len(engine.requests))
	}
	req := engine.requests[0]
	if req.BookingID != "b1" || req.Target != booking.StatusCancelled || req.Role != booking.RoleSystem {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.ActorUserID != "" {
		t.Fatalf("system request must not carry a user id")
	}
}

// A booking a human already moved produces TransitionNotAllowed from the
// engine; the sweep swallows it and keeps going.
func TestSweep_SupersededTransitionSwallowed(t *testing.T) {
	entered := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	engine := &fakeEngine{fail: map[string]error{
		"raced": &booking.TransitionNotAllowedError{
			From:   booking.StatusCancelled,
			Role:   booking.RoleSystem,
			Target: booking.StatusPickup,
		},
	}}
	s := &Scheduler{
		Engine:  engine,
		Windows: DefaultWindows(),
		Clock:   fakeClock{at: entered.Add(72 * time.Hour)},
		Source: fakeSource{bookings: []SweepBooking{
			{ID: "raced", Status: booking.StatusAccepted, StartDate: entered, PaymentSettled: true},
			{ID: "fine", Status: booking.StatusPending, StateEnteredAt: entered},
		}},
	}

	applied, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep must not fail on a superseded booking: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected 1 applied, got %d", applied)
	}
	if len(engine.requests) != 2 {
		t.Fatalf("expected the sweep to continue past the failure, got %d requests", len(engine.requests))
	}
}

func TestSweep_UnexpectedErrorContinues(t *testing.T) {
	entered := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	engine := &fakeEngine{fail: map[string]error{
		"broken": errors.New("connection reset"),
	}}
	s := &Scheduler{
		Engine:  engine,
		Windows: DefaultWindows(),
		Clock:   fakeClock{at: entered.Add(49 * time.Hour)},
		Source: fakeSource{bookings: []SweepBooking{
			{ID: "broken", Status: booking.StatusPending, StateEnteredAt: entered},
			{ID: "fine", Status: booking.StatusPending, StateEnteredAt: entered},
		}},
	}

	applied, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected 1 applied, got %d", applied)
	}
}

func TestSweep_SourceErrorIsReturned(t *testing.T) {
	s := &Scheduler{
		Engine:  &fakeEngine{},
		Windows: DefaultWindows(),
		Source:  fakeSource{err: errors.New("db down")},
	}
	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatalf("expected error when candidates cannot be listed")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := &Scheduler{
		Engine:   &fakeEngine{},
		Windows:  DefaultWindows(),
		Source:   fakeSource{},
		Interval: 10 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancellation")
	}
}
