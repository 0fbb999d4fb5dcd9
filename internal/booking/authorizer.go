package booking

import (
	"fmt"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/audit"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/identity"
)

type edge struct {
	from, to Status
}

type rule struct {
	roles     []identity.Role
	ownerOnly bool
	action    audit.Action
}

// transitions is the whole lifecycle. STAFF only triages PENDING requests;
// every later state belongs to ADMIN, except the owner's cancel request.
var transitions = map[edge]rule{
	{StatusPending, StatusApproved}: {
		roles: []identity.Role{identity.RoleStaff, identity.RoleAdmin}, action: audit.ActionStatusChanged,
	},
	{StatusPending, StatusRejected}: {
		roles: []identity.Role{identity.RoleStaff, identity.RoleAdmin}, action: audit.ActionStatusChanged,
	},
	{StatusApproved, StatusRejected}: {
		roles: []identity.Role{identity.RoleAdmin}, action: audit.ActionForceRejected,
	},
	{StatusApproved, StatusCancellationRequested}: {
		roles: []identity.Role{identity.RoleStudent}, ownerOnly: true, action: audit.ActionStatusChanged,
	},
	{StatusRejected, StatusApproved}: {
		roles: []identity.Role{identity.RoleAdmin}, action: audit.ActionRejectUndone,
	},
	{StatusCancellationRequested, StatusCancelled}: {
		roles: []identity.Role{identity.RoleAdmin}, action: audit.ActionCancellationApproved,
	},
	{StatusCancellationRequested, StatusApproved}: {
		roles: []identity.Role{identity.RoleAdmin}, action: audit.ActionCancellationDenied,
	},
}

// Authorize decides whether actor may move b to the requested status.
// Edges missing from the table fail with ErrInvalidTransition whoever asks.
func Authorize(actor identity.Actor, b Booking, to Status) error {
	r, ok := transitions[edge{b.Status, to}]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}
	if !actor.Is(r.roles...) {
		return fmt.Errorf("%w: %s may not move %s to %s", ErrForbidden, actor.Role, b.Status, to)
	}
	if r.ownerOnly && actor.ID != b.UserID {
		return fmt.Errorf("%w: only the owner may move %s to %s", ErrForbidden, b.Status, to)
	}
	return nil
}

// NextStatuses lists the statuses actor may move b to right now.
func NextStatuses(actor identity.Actor, b Booking) []Status {
	out := []Status{}
	for _, to := range statusOrder {
		if Authorize(actor, b, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

func auditAction(from, to Status) audit.Action {
	if r, ok := transitions[edge{from, to}]; ok {
		return r.action
	}
	return audit.ActionStatusChanged
}
