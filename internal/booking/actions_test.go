package booking

import "testing"

func TestResolveAction(t *testing.T) {
	cases := []struct {
		action    Action
		partyRole Role
		current   Status
		wantRole  Role
		wantTo    Status
	}{
		{ActionAccept, RoleOwner, StatusPending, RoleOwner, StatusAccepted},
		{ActionDecline, RoleOwner, StatusPending, RoleOwner, StatusDeclined},
		{ActionCancel, RoleRenter, StatusPending, RoleRenter, StatusCancelled},
		{ActionCancel, RoleOwner, StatusAccepted, RoleOwner, StatusCancelled},
		{ActionOwnerConfirmHandoff, RoleOwner, StatusPickup, RoleOwner, StatusPickupOwner},

		// confirm-pickup means "confirm first" or "confirm second" depending on
		// the current status.
		{ActionConfirmPickup, RoleRenter, StatusPickup, RoleRenter, StatusPickupRenter},
		{ActionConfirmPickup, RoleRenter, StatusPickupOwner, RoleRenter, StatusInProgress},
		{ActionConfirmPickup, RoleRenter, StatusPickupRenter, RoleRenter, StatusInProgress},

		{ActionConfirmReturn, RoleRenter, StatusReturn, RoleRenter, StatusReturnRenter},
		{ActionConfirmReturn, RoleRenter, StatusReturnRenter, RoleRenter, StatusReturnOwner},
		{ActionOwnerConfirmReturn, RoleOwner, StatusReturn, RoleOwner, StatusReturnOwner},
		{ActionVerifyComplete, RoleOwner, StatusReturnOwner, RoleOwner, StatusCompleted},
		{ActionDispute, RoleOwner, StatusReturnOwner, RoleOwner, StatusDisputed},
		{ActionMarkReviewed, RoleRenter, StatusCompleted, RoleRenter, StatusReviewed},
		{ActionResolveDispute, RoleOwner, StatusDisputed, RoleSystem, StatusDisputeResolved},
	}
	for _, c := range cases {
		role, to, ok := ResolveAction(c.action, c.partyRole, c.current)
		if !ok {
			t.Fatalf("ResolveAction(%s, %s, %s): unexpected !ok", c.action, c.partyRole, c.current)
		}
		if role != c.wantRole || to != c.wantTo {
			t.Errorf("ResolveAction(%s, %s, %s) = (%s, %s), want (%s, %s)",
				c.action, c.partyRole, c.current, role, to, c.wantRole, c.wantTo)
		}
	}
}

func TestResolveAction_Unknown(t *testing.T) {
	if _, _, ok := ResolveAction("teleport", RoleRenter, StatusPending); ok {
		t.Fatalf("expected unknown action to resolve !ok")
	}
}
