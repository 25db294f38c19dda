// Package roster enforces who may be assigned to projects and tasks.
//
// Each project has at most one Lead supervisor. A supervisor holding Lead on
// any project cannot be removed or suspended until the role is handed over.
// Worker membership is tracked by persistent id; display names never count as
// identity.
package roster

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownRole           = errors.New("unknown supervisor role")
	ErrLeadTaken             = errors.New("project already has a lead supervisor")
	ErrAlreadyAssigned       = errors.New("supervisor is already assigned to this project")
	ErrLeadProtected         = errors.New("lead supervisor cannot be removed or suspended")
	ErrWorkerAlreadyAssigned = errors.New("worker is already assigned to this task")
	ErrWorkerNotOnProject    = errors.New("worker is not assigned to this project")
	ErrWorkerSuspended       = errors.New("worker is suspended")
	ErrSupervisorSuspended   = errors.New("supervisor is suspended")
)

// Role is a supervisor's standing on a project.
type Role string

const (
	RoleLead      Role = "Lead"
	RoleAssistant Role = "Assistant"
	RoleStandard  Role = "Standard"
)

var levels = []Role{RoleLead, RoleAssistant, RoleStandard}

// ParseLevel maps the numeric level used on the wire (0 lead, 1 assistant,
// 2 standard) to a Role.
func ParseLevel(level int) (Role, error) {
	if level < 0 || level >= len(levels) {
		return "", fmt.Errorf("%w: level %d", ErrUnknownRole, level)
	}
	return levels[level], nil
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	for _, r := range levels {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Level is the inverse of ParseLevel.
func (r Role) Level() int {
	for i, l := range levels {
		if l == r {
			return i
		}
	}
	return -1
}

// Member is one supervisor on a project.
type Member[ID comparable] struct {
	ID   ID
	Role Role
}

// Lead returns the lead supervisor of a project, if any.
func Lead[ID comparable](members []Member[ID]) (ID, bool) {
	for _, m := range members {
		if m.Role == RoleLead {
			return m.ID, true
		}
	}
	var zero ID
	return zero, false
}

// CheckSupervisorAssignment validates adding candidate to a project whose
// current supervisors are members.
func CheckSupervisorAssignment[ID comparable](members []Member[ID], candidate ID, role Role) error {
	if role.Level() < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	for _, m := range members {
		if m.ID == candidate {
			return ErrAlreadyAssigned
		}
	}
	if role == RoleLead {
		if _, ok := Lead(members); ok {
			return ErrLeadTaken
		}
	}
	return nil
}

// RoleOption is a role choice offered when assigning a supervisor.
type RoleOption struct {
	Role     Role `json:"role"`
	Level    int  `json:"level"`
	Disabled bool `json:"disabled"`
}

// RoleOptions lists the selectable roles; Lead is disabled once filled.
func RoleOptions[ID comparable](members []Member[ID]) []RoleOption {
	_, hasLead := Lead(members)
	opts := make([]RoleOption, 0, len(levels))
	for i, r := range levels {
		opts = append(opts, RoleOption{
			Role:     r,
			Level:    i,
			Disabled: r == RoleLead && hasLead,
		})
	}
	return opts
}

// HoldsLead reports whether any of roles, collected across all projects a
// supervisor is on, is Lead.
func HoldsLead(roles []Role) bool {
	for _, r := range roles {
		if r == RoleLead {
			return true
		}
	}
	return false
}

// CheckRemovable rejects removing a supervisor who is Lead anywhere.
func CheckRemovable(roles []Role) error {
	if HoldsLead(roles) {
		return ErrLeadProtected
	}
	return nil
}

// CheckSuspendable rejects suspending a supervisor who is Lead anywhere.
func CheckSuspendable(roles []Role) error {
	return CheckRemovable(roles)
}

// Actions are the roster actions available for one supervisor.
type Actions struct {
	IsLead     bool `json:"isLead"`
	CanRemove  bool `json:"canRemove"`
	CanSuspend bool `json:"canSuspend"`
}

// SupervisorActions derives which buttons should be enabled for a supervisor.
func SupervisorActions(roles []Role) Actions {
	lead := HoldsLead(roles)
	return Actions{IsLead: lead, CanRemove: !lead, CanSuspend: !lead}
}

// CheckWorkerTaskAssignment rejects adding worker to a task that already
// lists it among assigned.
func CheckWorkerTaskAssignment[ID comparable](assigned []ID, worker ID) error {
	for _, id := range assigned {
		if id == worker {
			return ErrWorkerAlreadyAssigned
		}
	}
	return nil
}
