package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatus_ForwardOnly(t *testing.T) {
	assert.NoError(t, TaskNotStarted.CanTransitionTo(TaskInProgress))
	assert.NoError(t, TaskInProgress.CanTransitionTo(TaskCompleted))
	assert.NoError(t, TaskNotStarted.CanTransitionTo(TaskCompleted))

	assert.ErrorIs(t, TaskCompleted.CanTransitionTo(TaskInProgress), ErrInvalidTransition)
	assert.ErrorIs(t, TaskInProgress.CanTransitionTo(TaskNotStarted), ErrInvalidTransition)
	assert.ErrorIs(t, TaskInProgress.CanTransitionTo(TaskInProgress), ErrInvalidTransition)
	assert.ErrorIs(t, TaskInProgress.CanTransitionTo(TaskStatus("Cancelled")), ErrUnknownStatus)
}

func TestProjectStatus_ForwardOnly(t *testing.T) {
	assert.NoError(t, ProjectPending.CanTransitionTo(ProjectActive))
	assert.NoError(t, ProjectActive.CanTransitionTo(ProjectCompleted))
	assert.ErrorIs(t, ProjectCompleted.CanTransitionTo(ProjectPending), ErrInvalidTransition)
	assert.ErrorIs(t, ProjectStatus("Archived").CanTransitionTo(ProjectActive), ErrUnknownStatus)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseTaskStatus("in progress")
	require.NoError(t, err)
	assert.Equal(t, TaskInProgress, s)

	p, err := ParseProjectStatus("ACTIVE")
	require.NoError(t, err)
	assert.Equal(t, ProjectActive, p)

	_, err = ParseTaskStatus("done")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestTaskMaterial_QuantityUsed(t *testing.T) {
	tm := TaskMaterial{QuantityAssigned: 30, QuantityRemaining: 10}
	assert.Equal(t, 20, tm.QuantityUsed())
}

func TestTask_WorkerIDsAndAllocation(t *testing.T) {
	task := Task{
		Workers:   []TaskWorker{{UserID: 4}, {UserID: 9}},
		Materials: []TaskMaterial{{MaterialID: 2, QuantityAssigned: 5}},
	}
	assert.Equal(t, []uint{4, 9}, task.WorkerIDs())
	require.NotNil(t, task.Allocation(2))
	assert.Equal(t, 5, task.Allocation(2).QuantityAssigned)
	assert.Nil(t, task.Allocation(3))
}
