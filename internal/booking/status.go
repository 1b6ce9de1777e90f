package booking

import "fmt"

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusAccepted        Status = "ACCEPTED"
	StatusDeclined        Status = "DECLINED"
	StatusCancelled       Status = "CANCELLED"
	StatusPickup          Status = "PICKUP"
	StatusPickupOwner     Status = "PICKUP_OWNER"
	StatusPickupRenter    Status = "PICKUP_RENTER"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusReturn          Status = "RETURN"
	StatusReturnOwner     Status = "RETURN_OWNER"
	StatusReturnRenter    Status = "RETURN_RENTER"
	StatusCompleted       Status = "COMPLETED"
	StatusReviewed        Status = "REVIEWED"
	StatusDisputed        Status = "DISPUTED"
	StatusDisputeResolved Status = "DISPUTE_RESOLVED"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusAccepted, StatusDeclined, StatusCancelled,
		StatusPickup, StatusPickupOwner, StatusPickupRenter, StatusInProgress,
		StatusReturn, StatusReturnOwner, StatusReturnRenter,
		StatusCompleted, StatusReviewed, StatusDisputed, StatusDisputeResolved:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

type Role string

const (
	RoleRenter Role = "renter"
	RoleOwner  Role = "owner"
	RoleSystem Role = "system"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleRenter, RoleOwner, RoleSystem:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %s", s)
	}
}

// allowedTransitions maps each non-terminal status to the next statuses each
// role may request. Terminal statuses (REVIEWED, CANCELLED, DECLINED,
// DISPUTE_RESOLVED) have no entry: nothing transitions out of them.
//
// Pickup and return are dual-confirmation handshakes: either party can
// confirm first, the intermediate status records who it was, and both orders
// converge on the same status (IN_PROGRESS, COMPLETED).
//
// The 48h no-response cancellation of PENDING bookings is not in this table;
// the engine admits it as a synthetic system-initiated CANCELLED transition.
var allowedTransitions = map[Status]map[Role][]Status{
	StatusPending: {
		RoleRenter: {StatusCancelled},
		RoleOwner:  {StatusAccepted, StatusDeclined},
		RoleSystem: {},
	},
	StatusAccepted: {
		RoleRenter: {StatusCancelled},
		RoleOwner:  {StatusCancelled},
		RoleSystem: {StatusPickup, StatusCancelled},
	},
	StatusPickup: {
		RoleRenter: {StatusPickupRenter},
		RoleOwner:  {StatusPickupOwner},
		RoleSystem: {StatusInProgress},
	},
	StatusPickupOwner: {
		RoleRenter: {StatusInProgress},
		RoleOwner:  {},
		RoleSystem: {StatusInProgress},
	},
	StatusPickupRenter: {
		RoleRenter: {StatusInProgress},
		RoleOwner:  {},
		RoleSystem: {StatusInProgress},
	},
	StatusInProgress: {
		RoleRenter: {},
		RoleOwner:  {},
		RoleSystem: {StatusReturn},
	},
	StatusReturn: {
		RoleRenter: {StatusReturnRenter},
		RoleOwner:  {StatusReturnOwner},
		RoleSystem: {StatusReturnOwner},
	},
	StatusReturnOwner: {
		RoleRenter: {},
		RoleOwner:  {StatusCompleted, StatusDisputed},
		RoleSystem: {StatusCompleted},
	},
	StatusReturnRenter: {
		RoleRenter: {StatusReturnOwner},
		RoleOwner:  {StatusCompleted, StatusDisputed},
		RoleSystem: {StatusCompleted},
	},
	StatusCompleted: {
		RoleRenter: {StatusReviewed},
		RoleOwner:  {},
		RoleSystem: {},
	},
	StatusDisputed: {
		RoleRenter: {},
		RoleOwner:  {},
		RoleSystem: {StatusDisputeResolved},
	},
}

// Allowed returns the statuses the given role may request from the given
// status. The returned slice is a copy.
func Allowed(from Status, role Role) []Status {
	m, ok := allowedTransitions[from]
	if !ok {
		return nil
	}
	out := make([]Status, len(m[role]))
	copy(out, m[role])
	return out
}

func CanTransition(from Status, role Role, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range m[role] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func IsTerminal(s Status) bool {
	_, ok := allowedTransitions[s]
	return !ok
}

// NonTerminalStatusStrings returns every status the scheduler still sweeps,
// as strings for SQL `= ANY($n)` parameters.
func NonTerminalStatusStrings() []string {
	out := make([]string, 0, len(allowedTransitions))
	for s := range allowedTransitions {
		out = append(out, string(s))
	}
	return out
}
