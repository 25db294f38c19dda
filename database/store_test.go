package database

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"twintrack/inventory"
	"twintrack/models"
	"twintrack/roster"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return NewStore(db)
}

type fixture struct {
	store    *Store
	project  *models.Project
	task     *models.Task
	cement   *models.Material
	worker   *models.User
	lead     *models.User
	standard *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := newTestStore(t)

	project, err := s.CreateProject(ctx, NewProject{Name: "North Tower"})
	require.NoError(t, err)
	task, err := s.CreateTask(ctx, NewTask{ProjectID: project.ID, Name: "Pour slab"})
	require.NoError(t, err)
	cement, err := s.CreateMaterial(ctx, project.ID, "Cement", "bags", 100)
	require.NoError(t, err)
	worker, err := s.CreateUser(ctx, "wendy", "Wendy Worker", "secret", models.RoleWorker)
	require.NoError(t, err)
	lead, err := s.CreateUser(ctx, "larry", "Larry Lead", "secret", models.RoleSupervisor)
	require.NoError(t, err)
	standard, err := s.CreateUser(ctx, "sam", "Sam Standard", "secret", models.RoleSupervisor)
	require.NoError(t, err)

	return &fixture{
		store: s, project: project, task: task, cement: cement,
		worker: worker, lead: lead, standard: standard,
	}
}

func (f *fixture) material(t *testing.T) *models.Material {
	t.Helper()
	m, err := f.store.MaterialByID(context.Background(), f.cement.ID)
	require.NoError(t, err)
	return m
}

func (f *fixture) allocation(t *testing.T) *models.TaskMaterial {
	t.Helper()
	task, err := f.store.TaskByID(context.Background(), f.task.ID)
	require.NoError(t, err)
	return task.Allocation(f.cement.ID)
}

func TestCreateProject_GeneratesCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, NewProject{Name: "Bridge Deck"})
	require.NoError(t, err)
	assert.Equal(t, "PRJ-BRIDGE-DECK", p.Code)
	assert.Equal(t, models.ProjectPending, p.Status)

	_, err = s.CreateProject(ctx, NewProject{Name: "Bridge Deck"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.CreateProject(ctx, NewProject{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestCreateProject_CreatorLeads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.store.CreateProject(ctx, NewProject{Name: "Harbour Bridge", LeadID: f.standard.ID})
	require.NoError(t, err)
	a, err := f.store.Assignments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, a.Supervisors, 1)
	assert.Equal(t, f.standard.ID, a.Supervisors[0].UserID)
	assert.Equal(t, roster.RoleLead, a.Supervisors[0].Role)

	ok, err := f.store.IsProjectSupervisor(ctx, p.ID, f.standard.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = f.store.AssignSupervisor(ctx, p.ID, f.lead.ID, roster.RoleLead)
	assert.ErrorIs(t, err, roster.ErrLeadTaken)
}

func TestIsProjectWorker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.store.IsProjectWorker(ctx, f.project.ID, f.worker.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = f.store.AssignWorker(ctx, f.project.ID, f.worker.ID)
	require.NoError(t, err)
	ok, err = f.store.IsProjectWorker(ctx, f.project.ID, f.worker.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeedDefaultAdmin(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, SeedDefaultAdmin(s.DB()))
	require.NoError(t, SeedDefaultAdmin(s.DB()))
	var count int64
	require.NoError(t, s.DB().Model(&models.User{}).Where("username = ?", "admin").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	sqlDB, err := s.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.Error(t, SeedDefaultAdmin(s.DB()))
}

func TestUpdateProjectStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.store.UpdateProjectStatus(ctx, f.project.ID, models.ProjectActive)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectActive, p.Status)

	_, err = f.store.UpdateProjectStatus(ctx, f.project.ID, models.ProjectPending)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.store.UpdateProjectStatus(ctx, 999, models.ProjectActive)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateMaterial_UniquePerProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, 100, f.cement.TotalQuantity)
	assert.Equal(t, 100, f.cement.AvailableQuantity)

	_, err := f.store.CreateMaterial(ctx, f.project.ID, "Cement", "bags", 5)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.store.CreateMaterial(ctx, f.project.ID, "Sand", "t", -5)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	_, err = f.store.CreateMaterial(ctx, 999, "Sand", "t", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAllocateAndReport_CementScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	allocs, err := f.store.AllocateMaterials(ctx, f.task.ID, []AllocationRequest{{MaterialID: f.cement.ID, Quantity: 30}})
	require.NoError(t, err)
	require.Len(t, allocs, 1)
	assert.Equal(t, 30, allocs[0].QuantityAssigned)
	assert.Equal(t, 30, allocs[0].QuantityRemaining)
	assert.Equal(t, 70, f.material(t).AvailableQuantity)

	report, err := f.store.ReportRemaining(ctx, f.task.ID, f.cement.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, report.Returned)
	assert.Equal(t, 90, report.Material.AvailableQuantity)
	assert.Equal(t, 100, report.Material.TotalQuantity)

	alloc := f.allocation(t)
	require.NotNil(t, alloc)
	assert.Equal(t, 30, alloc.QuantityAssigned)
	assert.Equal(t, 10, alloc.QuantityRemaining)
	assert.Equal(t, 20, alloc.QuantityUsed())
}

func TestAllocate_TopUpAccumulates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.AllocateMaterials(ctx, f.task.ID, []AllocationRequest{{MaterialID: f.cement.ID, Quantity: 20}})
	require.NoError(t, err)
	_, err = f.store.AllocateMaterials(ctx, f.task.ID, []AllocationRequest{{MaterialID: f.cement.ID, Quantity: 15}})
	require.NoError(t, err)

	alloc := f.allocation(t)
	assert.Equal(t, 35, alloc.QuantityAssigned)
	assert.Equal(t, 35, alloc.QuantityRemaining)
	assert.Equal(t, 65, f.material(t).AvailableQuantity)
}

func TestAllocate_InsufficientStockIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sand, err := f.store.CreateMaterial(ctx, f.project.ID, "Sand", "t", 10)
	require.NoError(t, err)

	_, err = f.store.AllocateMaterials(ctx, f.task.ID, []AllocationRequest{
		{MaterialID: f.cement.ID, Quantity: 40},
		{MaterialID: sand.ID, Quantity: 11},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var allocErr *inventory.AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, "Sand", allocErr.Material)
	assert.Equal(t, 10, allocErr.Available)

	assert.Equal(t, 100, f.material(t).AvailableQuantity)
	assert.Nil(t, f.allocation(t))
}

func TestAllocate_DuplicateLinesCountTogether(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.AllocateMaterials(ctx, f.task.ID, []AllocationRequest{
		{MaterialID: f.cement.ID, Quantity: 60},
		{MaterialID: f.cement.ID, Quantity: 50},
	})
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, 100, f.material(t).AvailableQuantity)
}

func TestAllocate_RejectsForeignMaterialAndBadQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.store.CreateProject(ctx, NewProject{Name: "South Annex"})
	require.NoError(t, err)
	steel, err := f.store.CreateMaterial(ctx, other.ID, "Steel", "t", 50)
	require.NoError(t, err)

	_, err = f.store.AllocateMaterials(ctx, f.task.ID, []AllocationRequest{{MaterialID: steel.ID, Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.store.AllocateMaterials(ctx, f.task.ID, []AllocationRequest{{MaterialID: f.cement.ID, Quantity: 0}})
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)

	_, err = f.store.AllocateMaterials(ctx, f.task.ID, nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestReportRemaining_OutOfRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.AllocateMaterials(ctx, f.task.ID, []AllocationRequest{{MaterialID: f.cement.ID, Quantity: 30}})
	require.NoError(t, err)

	_, err = f.store.ReportRemaining(ctx, f.task.ID, f.cement.ID, 31)
	assert.ErrorIs(t, err, inventory.ErrRemainingOutOfRange)
	_, err = f.store.ReportRemaining(ctx, f.task.ID, f.cement.ID, -1)
	assert.ErrorIs(t, err, inventory.ErrRemainingOutOfRange)

	assert.Equal(t, 70, f.material(t).AvailableQuantity)
	assert.Equal(t, 30, f.allocation(t).QuantityRemaining)
}

func TestUseCompletelyAndReturn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.AllocateMaterials(ctx, f.task.ID, []AllocationRequest{{MaterialID: f.cement.ID, Quantity: 30}})
	require.NoError(t, err)

	report, err := f.store.ReturnMaterial(ctx, f.task.ID, f.cement.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Returned)
	assert.Equal(t, 75, report.Material.AvailableQuantity)
	assert.Equal(t, 25, report.Allocation.QuantityRemaining)

	_, err = f.store.ReturnMaterial(ctx, f.task.ID, f.cement.ID, 26)
	assert.ErrorIs(t, err, inventory.ErrReturnOutOfRange)

	report, err = f.store.UseCompletely(ctx, f.task.ID, f.cement.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Returned)
	assert.Equal(t, 0, report.Allocation.QuantityRemaining)
	assert.Equal(t, 30, report.Allocation.QuantityUsed())
	assert.Equal(t, 75, f.material(t).AvailableQuantity)
}

func TestReport_NotAllocated(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.ReportRemaining(context.Background(), f.task.ID, f.cement.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIncreaseAndSetTotal_PreserveAllocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.AllocateMaterials(ctx, f.task.ID, []AllocationRequest{{MaterialID: f.cement.ID, Quantity: 30}})
	require.NoError(t, err)

	m, err := f.store.IncreaseMaterial(ctx, f.cement.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 120, m.TotalQuantity)
	assert.Equal(t, 90, m.AvailableQuantity)

	m, err = f.store.SetMaterialTotal(ctx, f.cement.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, m.TotalQuantity)
	assert.Equal(t, 20, m.AvailableQuantity)

	_, err = f.store.SetMaterialTotal(ctx, f.cement.ID, 29)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	_, err = f.store.IncreaseMaterial(ctx, f.cement.ID, 0)
	assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
}

func TestAssignSupervisor_SingleLead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.AssignSupervisor(ctx, f.project.ID, f.lead.ID, roster.RoleLead)
	require.NoError(t, err)

	_, err = f.store.AssignSupervisor(ctx, f.project.ID, f.standard.ID, roster.RoleLead)
	assert.ErrorIs(t, err, roster.ErrLeadTaken)

	_, err = f.store.AssignSupervisor(ctx, f.project.ID, f.standard.ID, roster.RoleStandard)
	require.NoError(t, err)

	_, err = f.store.AssignSupervisor(ctx, f.project.ID, f.standard.ID, roster.RoleAssistant)
	assert.ErrorIs(t, err, roster.ErrAlreadyAssigned)

	_, err = f.store.AssignSupervisor(ctx, f.project.ID, f.worker.ID, roster.RoleStandard)
	assert.ErrorIs(t, err, ErrWrongRole)

	a, err := f.store.Assignments(ctx, f.project.ID)
	require.NoError(t, err)
	assert.Len(t, a.Supervisors, 2)
}

func TestLeadProtection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.AssignSupervisor(ctx, f.project.ID, f.lead.ID, roster.RoleLead)
	require.NoError(t, err)
	_, err = f.store.AssignSupervisor(ctx, f.project.ID, f.standard.ID, roster.RoleStandard)
	require.NoError(t, err)

	err = f.store.RemoveSupervisor(ctx, f.project.ID, f.lead.ID)
	assert.ErrorIs(t, err, roster.ErrLeadProtected)
	_, err = f.store.SetSuspended(ctx, f.lead.ID, models.RoleSupervisor, true)
	assert.ErrorIs(t, err, roster.ErrLeadProtected)

	require.NoError(t, f.store.RemoveSupervisor(ctx, f.project.ID, f.standard.ID))
	err = f.store.RemoveSupervisor(ctx, f.project.ID, f.standard.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	u, err := f.store.SetSuspended(ctx, f.standard.ID, models.RoleSupervisor, true)
	require.NoError(t, err)
	assert.True(t, u.Suspended)

	_, err = f.store.AssignSupervisor(ctx, f.project.ID, f.standard.ID, roster.RoleStandard)
	assert.ErrorIs(t, err, roster.ErrSupervisorSuspended)
}

func TestAssignWorkerToTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.AssignWorkerToTask(ctx, f.task.ID, f.worker.ID)
	assert.ErrorIs(t, err, roster.ErrWorkerNotOnProject)

	_, err = f.store.AssignWorker(ctx, f.project.ID, f.worker.ID)
	require.NoError(t, err)
	_, err = f.store.AssignWorker(ctx, f.project.ID, f.worker.ID)
	assert.ErrorIs(t, err, ErrConflict)

	task, err := f.store.AssignWorkerToTask(ctx, f.task.ID, f.worker.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.worker.ID}, task.WorkerIDs())

	_, err = f.store.AssignWorkerToTask(ctx, f.task.ID, f.worker.ID)
	assert.ErrorIs(t, err, roster.ErrWorkerAlreadyAssigned)

	ok, err := f.store.IsTaskWorker(ctx, f.task.ID, f.worker.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	tasks, err := f.store.WorkerTasks(ctx, f.worker.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, f.task.ID, tasks[0].ID)

	projects, err := f.store.ProjectsForUser(ctx, f.worker.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
}

func TestAssignWorkerToTask_SameNameDifferentWorker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	twin, err := f.store.CreateUser(ctx, "wendy2", "Wendy Worker", "secret", models.RoleWorker)
	require.NoError(t, err)

	for _, id := range []uint{f.worker.ID, twin.ID} {
		_, err := f.store.AssignWorker(ctx, f.project.ID, id)
		require.NoError(t, err)
		_, err = f.store.AssignWorkerToTask(ctx, f.task.ID, id)
		require.NoError(t, err)
	}

	task, err := f.store.TaskByID(ctx, f.task.ID)
	require.NoError(t, err)
	assert.Len(t, task.Workers, 2)
}

func TestRemoveWorkerFromTasks_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.AssignWorker(ctx, f.project.ID, f.worker.ID)
	require.NoError(t, err)
	_, err = f.store.AssignWorkerToTask(ctx, f.task.ID, f.worker.ID)
	require.NoError(t, err)

	err = f.store.RemoveWorkerFromTasks(ctx, []TaskAssignment{
		{WorkerID: f.worker.ID, TaskID: f.task.ID},
		{WorkerID: f.worker.ID, TaskID: 999},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := f.store.IsTaskWorker(ctx, f.task.ID, f.worker.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.store.RemoveWorkerFromTasks(ctx, []TaskAssignment{{WorkerID: f.worker.ID, TaskID: f.task.ID}}))
	ok, err = f.store.IsTaskWorker(ctx, f.task.ID, f.worker.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSuspendedWorkerCannotJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.AssignWorker(ctx, f.project.ID, f.worker.ID)
	require.NoError(t, err)

	_, err = f.store.SetSuspended(ctx, f.worker.ID, models.RoleWorker, true)
	require.NoError(t, err)
	_, err = f.store.AssignWorkerToTask(ctx, f.task.ID, f.worker.ID)
	assert.ErrorIs(t, err, roster.ErrWorkerSuspended)

	_, err = f.store.SetSuspended(ctx, f.worker.ID, models.RoleSupervisor, true)
	assert.ErrorIs(t, err, ErrWrongRole)
}

func TestTaskCompletionAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.store.UpdateTaskStatus(ctx, f.task.ID, models.TaskInProgress)
	require.NoError(t, err)
	assert.Nil(t, task.CompletedAt)

	task, err = f.store.UpdateTaskStatus(ctx, f.task.ID, models.TaskCompleted)
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)

	_, err = f.store.UpdateTaskStatus(ctx, f.task.ID, models.TaskInProgress)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	now := time.Now().UTC()
	days, err := f.store.CompletionsSince(ctx, now.AddDate(0, 0, -6), now)
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, now.Format("2006-01-02"), days[6].Date)
	assert.Equal(t, 1, days[6].TasksCompleted)
}

func TestUsersByRoleAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users, total, err := f.store.UsersByRole(ctx, models.RoleSupervisor, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, users, 1)
	assert.Equal(t, "Larry Lead", users[0].FullName)

	u, err := f.store.Authenticate(ctx, "wendy", "secret")
	require.NoError(t, err)
	assert.Equal(t, f.worker.ID, u.ID)

	_, err = f.store.Authenticate(ctx, "wendy", "wrong")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.store.CreateUser(ctx, "wendy", "Again", "secret", models.RoleWorker)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestWorkerTaskPairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.AssignWorker(ctx, f.project.ID, f.worker.ID)
	require.NoError(t, err)
	_, err = f.store.AssignWorkerToTask(ctx, f.task.ID, f.worker.ID)
	require.NoError(t, err)

	pairs, err := f.store.WorkerTaskPairs(ctx)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, f.worker.ID, pairs[0].WorkerID)
	assert.Equal(t, "Pour slab", pairs[0].TaskName)
	assert.Equal(t, models.TaskNotStarted, pairs[0].Status)
}
