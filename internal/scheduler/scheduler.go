package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"gearshare/internal/booking"
)

// Clock abstracts wall-clock time so sweeps can be driven deterministically
// in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Engine is the slice of the lifecycle engine the scheduler needs.
type Engine interface {
	RequestTransition(ctx context.Context, req booking.TransitionRequest) (*booking.TransitionResult, error)
}

// Source lists the booking snapshots a sweep inspects.
type Source interface {
	ListNonTerminal(ctx context.Context) ([]SweepBooking, error)
}

// Scheduler periodically sweeps non-terminal bookings and asks the engine to
// apply whichever deadline rule is due, as the system actor. One booking's
// failure never aborts a sweep: lost races with human actions surface as
// TransitionNotAllowed from the engine and are expected.
type Scheduler struct {
	Engine   Engine
	Source   Source
	Windows  Windows
	Interval time.Duration
	Clock    Clock // nil means wall clock

	InfoLog  *log.Logger
	ErrorLog *log.Logger

	// SweepTimeout bounds one whole sweep. Zero means a minute.
	SweepTimeout time.Duration
}

func (s *Scheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return realClock{}.Now()
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sweepWithTimeout(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepWithTimeout(ctx)
		}
	}
}

func (s *Scheduler) sweepWithTimeout(ctx context.Context) {
	timeout := s.SweepTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	applied, err := s.Sweep(runCtx)
	if err != nil {
		if s.ErrorLog != nil {
			s.ErrorLog.Printf("scheduler: sweep failed: %v", err)
		}
		return
	}
	if applied > 0 && s.InfoLog != nil {
		s.InfoLog.Printf("scheduler: applied %d automatic transitions", applied)
	}
}

// Sweep runs one pass and returns how many transitions were applied. Only a
// failure to list candidates is returned as an error; per-booking transition
// failures are logged and swallowed.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	candidates, err := s.Source.ListNonTerminal(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	applied := 0
	for _, b := range candidates {
		target, note, ok := Due(s.Windows, b, now)
		if !ok {
			continue
		}
		_, err := s.Engine.RequestTransition(ctx, booking.TransitionRequest{
			BookingID: b.ID,
			Target:    target,
			Role:      booking.RoleSystem,
			Note:      note,
		})
		if err != nil {
			var tna *booking.TransitionNotAllowedError
			if errors.As(err, &tna) {
				// A human (or an earlier rule) got there first.
				if s.InfoLog != nil {
					s.InfoLog.Printf("scheduler: booking %s superseded: %v", b.ID, err)
				}
				continue
			}
			if s.ErrorLog != nil {
				s.ErrorLog.Printf("scheduler: booking %s: %v", b.ID, err)
			}
			continue
		}
		applied++
	}
	return applied, nil
}
