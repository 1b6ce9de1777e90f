package booking

// Action is a named lifecycle action as exposed by the HTTP layer. Each action
// resolves to a (role, target status) pair; confirmation actions pick their
// target from the booking's current status because the same button means
// "confirm first" or "confirm second" depending on who already acted.
type Action string

const (
	ActionAccept              Action = "accept"
	ActionDecline             Action = "decline"
	ActionCancel              Action = "cancel"
	ActionConfirmPickup       Action = "confirm-pickup"
	ActionOwnerConfirmHandoff Action = "owner-confirm-handoff"
	ActionConfirmReturn       Action = "confirm-return"
	ActionOwnerConfirmReturn  Action = "owner-confirm-return"
	ActionVerifyComplete      Action = "verify-complete"
	ActionDispute             Action = "dispute"
	ActionMarkReviewed        Action = "mark-reviewed"
	ActionResolveDispute      Action = "resolve-dispute"
)

type actionSpec struct {
	role Role // zero value means "the caller's party role" (cancel)

	// target is the canonical target; perState overrides it for states where
	// the action means something more specific.
	target   Status
	perState map[Status]Status
}

var actionSpecs = map[Action]actionSpec{
	ActionAccept:              {role: RoleOwner, target: StatusAccepted},
	ActionDecline:             {role: RoleOwner, target: StatusDeclined},
	ActionCancel:              {target: StatusCancelled},
	ActionOwnerConfirmHandoff: {role: RoleOwner, target: StatusPickupOwner},
	ActionConfirmPickup: {
		role:   RoleRenter,
		target: StatusPickupRenter,
		perState: map[Status]Status{
			StatusPickupOwner:  StatusInProgress,
			StatusPickupRenter: StatusInProgress,
		},
	},
	ActionConfirmReturn: {
		role:   RoleRenter,
		target: StatusReturnRenter,
		perState: map[Status]Status{
			StatusReturnRenter: StatusReturnOwner,
		},
	},
	ActionOwnerConfirmReturn: {role: RoleOwner, target: StatusReturnOwner},
	ActionVerifyComplete:     {role: RoleOwner, target: StatusCompleted},
	ActionDispute:            {role: RoleOwner, target: StatusDisputed},
	ActionMarkReviewed:       {role: RoleRenter, target: StatusReviewed},
	ActionResolveDispute:     {role: RoleSystem, target: StatusDisputeResolved},
}

// ResolveAction maps a named action to the (role, target) pair to request
// from the engine. partyRole is the caller's relationship to the booking and
// is only consulted for actions either party may take. Unknown actions return
// ok=false. Legality of the resolved pair is the validator's job, not this
// function's: a resolved pair can still be rejected.
func ResolveAction(a Action, partyRole Role, current Status) (Role, Status, bool) {
	spec, ok := actionSpecs[a]
	if !ok {
		return "", "", false
	}
	role := spec.role
	if role == "" {
		role = partyRole
	}
	if t, ok := spec.perState[current]; ok {
		return role, t, true
	}
	return role, spec.target, true
}
