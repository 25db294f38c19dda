package roster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twintrack/roster"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level int
		want  roster.Role
	}{
		{0, roster.RoleLead},
		{1, roster.RoleAssistant},
		{2, roster.RoleStandard},
	}
	for _, tt := range tests {
		got, err := roster.ParseLevel(tt.level)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.level, got.Level())
	}

	_, err := roster.ParseLevel(3)
	assert.ErrorIs(t, err, roster.ErrUnknownRole)
	_, err = roster.ParseLevel(-1)
	assert.ErrorIs(t, err, roster.ErrUnknownRole)
}

func TestParseRole(t *testing.T) {
	r, err := roster.ParseRole(" lead ")
	require.NoError(t, err)
	assert.Equal(t, roster.RoleLead, r)

	_, err = roster.ParseRole("foreman")
	assert.ErrorIs(t, err, roster.ErrUnknownRole)
}

func TestCheckSupervisorAssignment_SingleLead(t *testing.T) {
	members := []roster.Member[uint]{{ID: 1, Role: roster.RoleLead}}

	err := roster.CheckSupervisorAssignment(members, 2, roster.RoleLead)
	assert.ErrorIs(t, err, roster.ErrLeadTaken)

	assert.NoError(t, roster.CheckSupervisorAssignment(members, 2, roster.RoleAssistant))
	assert.NoError(t, roster.CheckSupervisorAssignment(members, 2, roster.RoleStandard))
	assert.NoError(t, roster.CheckSupervisorAssignment[uint](nil, 2, roster.RoleLead))
}

func TestCheckSupervisorAssignment_Duplicate(t *testing.T) {
	members := []roster.Member[string]{{ID: "a", Role: roster.RoleStandard}}
	err := roster.CheckSupervisorAssignment(members, "a", roster.RoleAssistant)
	assert.ErrorIs(t, err, roster.ErrAlreadyAssigned)
}

func TestCheckSupervisorAssignment_UnknownRole(t *testing.T) {
	err := roster.CheckSupervisorAssignment[uint](nil, 1, roster.Role("Owner"))
	assert.ErrorIs(t, err, roster.ErrUnknownRole)
}

func TestRoleOptions(t *testing.T) {
	opts := roster.RoleOptions[uint](nil)
	require.Len(t, opts, 3)
	for _, o := range opts {
		assert.False(t, o.Disabled, o.Role)
	}

	opts = roster.RoleOptions([]roster.Member[uint]{{ID: 7, Role: roster.RoleLead}})
	assert.True(t, opts[0].Disabled)
	assert.Equal(t, roster.RoleLead, opts[0].Role)
	assert.False(t, opts[1].Disabled)
	assert.False(t, opts[2].Disabled)
}

func TestLeadProtection(t *testing.T) {
	leadSomewhere := []roster.Role{roster.RoleStandard, roster.RoleLead}
	assert.ErrorIs(t, roster.CheckRemovable(leadSomewhere), roster.ErrLeadProtected)
	assert.ErrorIs(t, roster.CheckSuspendable(leadSomewhere), roster.ErrLeadProtected)
	assert.Equal(t, roster.Actions{IsLead: true}, roster.SupervisorActions(leadSomewhere))

	plain := []roster.Role{roster.RoleAssistant}
	assert.NoError(t, roster.CheckRemovable(plain))
	assert.NoError(t, roster.CheckSuspendable(nil))
	assert.Equal(t, roster.Actions{CanRemove: true, CanSuspend: true}, roster.SupervisorActions(plain))
}

func TestCheckWorkerTaskAssignment(t *testing.T) {
	assigned := []string{"w-1", "w-2"}
	assert.ErrorIs(t, roster.CheckWorkerTaskAssignment(assigned, "w-2"), roster.ErrWorkerAlreadyAssigned)
	assert.NoError(t, roster.CheckWorkerTaskAssignment(assigned, "w-3"))
}

// Two workers sharing a display name are still distinct people.
func TestCheckWorkerTaskAssignment_SameNameDifferentID(t *testing.T) {
	type worker struct {
		id   uint
		name string
	}
	onTask := []worker{{id: 10, name: "Ali Hassan"}}
	candidate := worker{id: 11, name: "Ali Hassan"}

	ids := make([]uint, 0, len(onTask))
	for _, w := range onTask {
		ids = append(ids, w.id)
	}
	assert.NoError(t, roster.CheckWorkerTaskAssignment(ids, candidate.id))
}
