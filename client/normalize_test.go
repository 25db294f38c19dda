package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twintrack/roster"
)

func TestNormalizeMaterialAliases(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantID    string
		wantName  string
		total     int
		available int
	}{
		{"canonical", `{"id":1,"name":"Cement","totalQuantity":100,"availableQuantity":70}`, "1", "Cement", 100, 70},
		{"materialName and string id", `{"materialId":"2","materialName":"Sand","total":40,"available":40}`, "2", "Sand", 40, 40},
		{"pascal case", `{"Id":3,"Name":"Gravel","TotalQuantity":5,"quantity":"5"}`, "3", "Gravel", 5, 5},
		{"quantity only", `{"id":4,"name":"Rebar","quantity":12}`, "4", "Rebar", 12, 12},
		{"total only", `{"id":5,"name":"Bricks","totalQuantity":900}`, "5", "Bricks", 900, 900},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := normalizeMaterial(json.RawMessage(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, m.ID)
			assert.Equal(t, tt.wantName, m.Name)
			assert.Equal(t, tt.total, m.TotalQuantity)
			assert.Equal(t, tt.available, m.AvailableQuantity)
		})
	}
}

func TestNormalizeMaterialRejectsBrokenStock(t *testing.T) {
	for _, payload := range []string{
		`{"id":1,"name":"Cement","totalQuantity":10,"availableQuantity":11}`,
		`{"id":1,"name":"Cement","availableQuantity":-1,"totalQuantity":10}`,
		`{"id":1,"name":"Cement"}`,
		`{"name":"Cement","totalQuantity":10}`,
		`{"id":1,"name":"Cement","totalQuantity":"lots"}`,
		`{"id":1,"name":"Cement","totalQuantity":2.5}`,
	} {
		_, err := normalizeMaterial(json.RawMessage(payload))
		assert.ErrorIs(t, err, ErrMalformedPayload, payload)
	}
}

func TestNormalizeAllocation(t *testing.T) {
	a, err := normalizeAllocation(json.RawMessage(`{"materialId":11,"quantityAssigned":30}`))
	require.NoError(t, err)
	assert.Equal(t, 30, a.QuantityRemaining, "missing remaining means nothing reported")
	assert.Equal(t, 0, a.Used())

	a, err = normalizeAllocation(json.RawMessage(`{"material":{"id":"11","name":"Cement","unit":"bag"},"quantity":30,"remaining":10,"quantityUsed":99}`))
	require.NoError(t, err)
	assert.Equal(t, "11", a.MaterialID)
	assert.Equal(t, "Cement", a.MaterialName)
	assert.Equal(t, 20, a.Used(), "used is derived, never read")

	_, err = normalizeAllocation(json.RawMessage(`{"materialId":11,"quantityAssigned":30,"quantityRemaining":31}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestNormalizeListShapes(t *testing.T) {
	for _, payload := range []string{
		`[{"id":1,"name":"A"},{"id":2,"name":"B"}]`,
		`{"items":[{"id":1,"name":"A"},{"id":2,"name":"B"}],"total":2}`,
		`{"Items":[{"id":1,"name":"A"},{"id":2,"name":"B"}]}`,
	} {
		projects, err := normalizeList(json.RawMessage(payload), normalizeProject)
		require.NoError(t, err, payload)
		require.Len(t, projects, 2)
		assert.Equal(t, "2", projects[1].ID)
	}

	projects, err := normalizeList(json.RawMessage(`null`), normalizeProject)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestNormalizePersonNeedsID(t *testing.T) {
	_, err := normalizePerson(json.RawMessage(`"Sam"`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	p, err := normalizePerson(json.RawMessage(`31`))
	require.NoError(t, err)
	assert.Equal(t, "31", p.ID)

	p, err = normalizePerson(json.RawMessage(`{"workerId":31,"fullName":"Sam","suspended":true}`))
	require.NoError(t, err)
	assert.Equal(t, Person{ID: "31", Name: "Sam", Suspended: true}, p)
}

func TestNormalizeTaskMatchesWorkersByID(t *testing.T) {
	task, err := normalizeTask(json.RawMessage(`{
		"id": 21,
		"name": "Pour slab",
		"deadLine": "2026-11-01",
		"assignedWorkers": [{"id": 31, "fullName": "Sam"}],
		"materials": [{"materialId": 11, "quantityAssigned": 30, "quantityRemaining": 10}]
	}`))
	require.NoError(t, err)
	require.NotNil(t, task.DueDate)
	assert.True(t, task.HasWorker("31"))
	assert.False(t, task.HasWorker("32"))
	assert.False(t, task.HasWorker("Sam"))

	alloc, ok := task.Allocation("11")
	require.True(t, ok)
	assert.Equal(t, "21", alloc.TaskID)
}

func TestNormalizeAssignmentsRoles(t *testing.T) {
	a, err := normalizeAssignments(json.RawMessage(`{
		"projectName": "North Tower",
		"supervisors": [
			{"supervisorId": 41, "fullName": "Larry", "level": 0},
			{"supervisorId": "42", "fullName": "Ann", "role": "Assistant"}
		],
		"workers": [{"workerId": 31, "fullName": "Sam"}]
	}`))
	require.NoError(t, err)
	require.Len(t, a.Supervisors, 2)
	assert.Equal(t, roster.RoleLead, a.Supervisors[0].Role)
	assert.Equal(t, roster.RoleAssistant, a.Supervisors[1].Role)

	lead, ok := roster.Lead(a.Members())
	require.True(t, ok)
	assert.Equal(t, "41", lead)

	_, err = normalizeAssignments(json.RawMessage(`{"supervisors":[{"supervisorId":41,"level":7}]}`))
	assert.Error(t, err)
}

func TestNormalizeSupervisorActions(t *testing.T) {
	s, err := normalizeSupervisor(json.RawMessage(`{"id":41,"fullName":"Larry","roles":["Lead","Standard"]}`))
	require.NoError(t, err)
	assert.Equal(t, roster.Actions{IsLead: true}, s.Actions)

	s, err = normalizeSupervisor(json.RawMessage(`{"id":42,"fullName":"Ann","isLead":true}`))
	require.NoError(t, err)
	assert.False(t, s.CanRemove)
	assert.False(t, s.CanSuspend)

	s, err = normalizeSupervisor(json.RawMessage(`{"id":43,"fullName":"Bo","roles":["Standard"]}`))
	require.NoError(t, err)
	assert.Equal(t, roster.Actions{CanRemove: true, CanSuspend: true}, s.Actions)
}

func TestNormalizeWorkerPage(t *testing.T) {
	page, err := normalizeWorkerPage(json.RawMessage(`{"items":[{"id":1,"fullName":"A"}],"total":41,"page":3,"pageSize":1}`))
	require.NoError(t, err)
	assert.Equal(t, 41, page.Total)
	assert.Equal(t, 3, page.Page)

	page, err = normalizeWorkerPage(json.RawMessage(`[{"id":1},{"id":2}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}
