package booking

import (
	"testing"

	"gearshare/internal/availability"
)

func TestCanTransition_TableSamples(t *testing.T) {
	cases := []struct {
		from Status
		role Role
		to   Status
		want bool
	}{
		{StatusPending, RoleOwner, StatusAccepted, true},
		{StatusPending, RoleOwner, StatusDeclined, true},
		{StatusPending, RoleRenter, StatusCancelled, true},
		{StatusPending, RoleRenter, StatusAccepted, false},
		{StatusPending, RoleSystem, StatusCancelled, false}, // synthetic case lives in the engine, not the table
		{StatusAccepted, RoleSystem, StatusPickup, true},
		{StatusAccepted, RoleSystem, StatusCancelled, true},
		{StatusAccepted, RoleOwner, StatusCancelled, true},
		{StatusAccepted, RoleOwner, StatusPickup, false},
		{StatusPickup, RoleRenter, StatusPickupRenter, true},
		{StatusPickup, RoleOwner, StatusPickupOwner, true},
		{StatusPickup, RoleRenter, StatusPickupOwner, false},
		{StatusPickupOwner, RoleRenter, StatusInProgress, true},
		{StatusPickupOwner, RoleOwner, StatusInProgress, false},
		{StatusInProgress, RoleSystem, StatusReturn, true},
		{StatusInProgress, RoleRenter, StatusReturn, false},
		{StatusReturn, RoleSystem, StatusReturnOwner, true},
		{StatusReturnOwner, RoleOwner, StatusCompleted, true},
		{StatusReturnOwner, RoleOwner, StatusDisputed, true},
		{StatusReturnOwner, RoleRenter, StatusCompleted, false},
		{StatusReturnRenter, RoleRenter, StatusReturnOwner, true},
		{StatusReturnRenter, RoleOwner, StatusCompleted, true},
		{StatusCompleted, RoleRenter, StatusReviewed, true},
		{StatusCompleted, RoleOwner, StatusReviewed, false},
		{StatusDisputed, RoleSystem, StatusDisputeResolved, true},
		{StatusDisputed, RoleOwner, StatusDisputeResolved, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.role, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", c.from, c.role, c.to, got, c.want)
		}
	}
}

func TestTerminalStatuses_NoOutgoingTransitions(t *testing.T) {
	terminals := []Status{StatusReviewed, StatusCancelled, StatusDeclined, StatusDisputeResolved}
	all := []Status{
		StatusPending, StatusAccepted, StatusDeclined, StatusCancelled,
		StatusPickup, StatusPickupOwner, StatusPickupRenter, StatusInProgress,
		StatusReturn, StatusReturnOwner, StatusReturnRenter,
		StatusCompleted, StatusReviewed, StatusDisputed, StatusDisputeResolved,
	}
	for _, from := range terminals {
		if !IsTerminal(from) {
			t.Fatalf("expected %s terminal", from)
		}
		for _, role := range []Role{RoleRenter, RoleOwner, RoleSystem} {
			for _, to := range all {
				if CanTransition(from, role, to) {
					t.Fatalf("terminal %s allows %s -> %s for %s", from, from, to, role)
				}
			}
		}
	}
}

func TestNonTerminalStatuses_HaveTableEntries(t *testing.T) {
	nonTerminal := []Status{
		StatusPending, StatusAccepted, StatusPickup, StatusPickupOwner,
		StatusPickupRenter, StatusInProgress, StatusReturn, StatusReturnOwner,
		StatusReturnRenter, StatusCompleted, StatusDisputed,
	}
	for _, s := range nonTerminal {
		if IsTerminal(s) {
			t.Fatalf("expected %s non-terminal", s)
		}
	}
	if got := len(NonTerminalStatusStrings()); got != len(nonTerminal) {
		t.Fatalf("expected %d non-terminal statuses, got %d", len(nonTerminal), got)
	}
}

// The availability index classifies current_status values by name; guard
// against its blocking set drifting from the statuses defined here.
func TestBlockingStatuses_MatchStatusSet(t *testing.T) {
	blocking := []Status{
		StatusPending, StatusAccepted, StatusPickup, StatusPickupOwner,
		StatusPickupRenter, StatusInProgress, StatusReturn, StatusReturnOwner,
		StatusReturnRenter,
	}
	got := availability.BlockingStatuses()
	if len(got) != len(blocking) {
		t.Fatalf("expected %d blocking statuses, got %d", len(blocking), len(got))
	}
	for _, raw := range got {
		if _, err := ParseStatus(raw); err != nil {
			t.Fatalf("blocking status %q is not a known status: %v", raw, err)
		}
	}
	for _, s := range blocking {
		if !availability.IsBlocking(string(s)) {
			t.Fatalf("expected %s to block availability", s)
		}
	}
	for _, s := range []Status{StatusDeclined, StatusCancelled, StatusDisputed, StatusDisputeResolved, StatusCompleted, StatusReviewed} {
		if availability.IsBlocking(string(s)) {
			t.Fatalf("expected %s not to block availability", s)
		}
	}
}

func TestParseStatus_RejectsUnknown(t *testing.T) {
	if _, err := ParseStatus("IN_PROGRESS"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseStatus("in_progress"); err == nil {
		t.Fatalf("expected error for lowercase status")
	}
	if _, err := ParseRole("system"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseRole("admin"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}
