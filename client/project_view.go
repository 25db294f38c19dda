package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"twintrack/inventory"
	"twintrack/roster"
)

// ProjectView is the cached state behind one project page. Mutations are
// checked against the cache, sent, and followed by a full reload; a failed
// call leaves the cache as it was.
type ProjectView struct {
	client    *Client
	projectID string

	mu    sync.RWMutex
	state projectState
}

type projectState struct {
	project     Project
	materials   []Material
	tasks       []Task
	assignments Assignments
	// rosterVisible is false when the caller may not read assignments.
	rosterVisible bool
}

// OpenProject loads a project view.
func (c *Client) OpenProject(ctx context.Context, projectID string) (*ProjectView, error) {
	v := &ProjectView{client: c, projectID: projectID}
	if err := v.Load(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

// Load fetches the project, its materials, tasks and roster concurrently.
func (v *ProjectView) Load(ctx context.Context) error {
	var next projectState
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		next.project, err = v.client.Project(ctx, v.projectID)
		return err
	})
	g.Go(func() error {
		var err error
		next.materials, err = v.client.ProjectMaterials(ctx, v.projectID)
		return err
	})
	g.Go(func() error {
		var err error
		next.tasks, err = v.client.ProjectTasks(ctx, v.projectID)
		return err
	})
	g.Go(func() error {
		a, err := v.client.ProjectAssignments(ctx, v.projectID)
		var berr *BackendError
		if errors.As(err, &berr) && berr.Status == http.StatusForbidden {
			return nil
		}
		if err != nil {
			return err
		}
		next.assignments, next.rosterVisible = a, true
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	v.mu.Lock()
	v.state = next
	v.mu.Unlock()
	return nil
}

func (v *ProjectView) snapshot() projectState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

func (v *ProjectView) Project() Project {
	return v.snapshot().project
}

func (v *ProjectView) Materials() []Material {
	return append([]Material(nil), v.snapshot().materials...)
}

func (v *ProjectView) Tasks() []Task {
	return append([]Task(nil), v.snapshot().tasks...)
}

func (v *ProjectView) Assignments() Assignments {
	return v.snapshot().assignments
}

func (v *ProjectView) Material(id string) (Material, bool) {
	for _, m := range v.snapshot().materials {
		if m.ID == id {
			return m, true
		}
	}
	return Material{}, false
}

func (v *ProjectView) Task(id string) (Task, bool) {
	for _, t := range v.snapshot().tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// RoleOptions lists the roles a new supervisor can take on this project.
func (v *ProjectView) RoleOptions() []roster.RoleOption {
	return roster.RoleOptions(v.snapshot().assignments.Members())
}

// AllocateMaterials assigns every requested material to the task or none.
// Repeated lines for one material are checked against its availability
// together.
func (v *ProjectView) AllocateMaterials(ctx context.Context, taskID string, reqs []MaterialRequest) ([]Allocation, error) {
	st := v.snapshot()
	if _, ok := findTask(st.tasks, taskID); !ok {
		return nil, &ValidationError{Title: "Unknown task", Message: fmt.Sprintf("task %s is not part of this project", taskID)}
	}
	if len(reqs) == 0 {
		return nil, &ValidationError{Title: "Invalid allocation", Message: "select at least one material"}
	}

	stock := make(map[string]inventory.Material)
	for _, r := range reqs {
		m, ok := stock[r.MaterialID]
		if !ok {
			cached, found := findMaterial(st.materials, r.MaterialID)
			if !found {
				return nil, &ValidationError{Title: "Unknown material", Message: fmt.Sprintf("material %s is not part of this project", r.MaterialID)}
			}
			m = cached.Stock()
		}
		if _, err := inventory.Allocate(&m, nil, r.Quantity); err != nil {
			return nil, invalid("Insufficient stock", err)
		}
		stock[r.MaterialID] = m
	}

	allocs, err := v.client.AssignMaterials(ctx, taskID, reqs)
	if err != nil {
		return nil, err
	}
	return allocs, v.Load(ctx)
}

// holding returns the cached material and the task's allocation of it.
func (v *ProjectView) holding(taskID, materialID string) (Material, Allocation, error) {
	st := v.snapshot()
	task, ok := findTask(st.tasks, taskID)
	if !ok {
		return Material{}, Allocation{}, &ValidationError{Title: "Unknown task", Message: fmt.Sprintf("task %s is not part of this project", taskID)}
	}
	alloc, ok := task.Allocation(materialID)
	if !ok {
		return Material{}, Allocation{}, &ValidationError{Title: "Nothing allocated", Message: fmt.Sprintf("task %q holds no material %s", task.Name, materialID)}
	}
	m, ok := findMaterial(st.materials, materialID)
	if !ok {
		return Material{}, Allocation{}, &ValidationError{Title: "Unknown material", Message: fmt.Sprintf("material %s is not part of this project", materialID)}
	}
	return m, alloc, nil
}

// ReportRemaining records how much of a material the task still holds.
func (v *ProjectView) ReportRemaining(ctx context.Context, taskID, materialID string, remaining int) (UsageResult, error) {
	m, a, err := v.holding(taskID, materialID)
	if err != nil {
		return UsageResult{}, err
	}
	stock, held := m.Stock(), a.Holding()
	if _, err := inventory.ReportRemaining(&stock, &held, remaining); err != nil {
		return UsageResult{}, invalid("Invalid quantity", err)
	}
	res, err := v.client.ReportRemaining(ctx, taskID, materialID, remaining)
	if err != nil {
		return UsageResult{}, err
	}
	return res, v.Load(ctx)
}

// UseAll marks the task's whole holding of a material as consumed.
func (v *ProjectView) UseAll(ctx context.Context, taskID, materialID string) (UsageResult, error) {
	m, a, err := v.holding(taskID, materialID)
	if err != nil {
		return UsageResult{}, err
	}
	stock, held := m.Stock(), a.Holding()
	if _, err := inventory.UseCompletely(&stock, &held); err != nil {
		return UsageResult{}, invalid("Invalid quantity", err)
	}
	res, err := v.client.UseAll(ctx, taskID, materialID)
	if err != nil {
		return UsageResult{}, err
	}
	return res, v.Load(ctx)
}

// Return hands quantity units back to the project.
func (v *ProjectView) Return(ctx context.Context, taskID, materialID string, quantity int) (UsageResult, error) {
	m, a, err := v.holding(taskID, materialID)
	if err != nil {
		return UsageResult{}, err
	}
	stock, held := m.Stock(), a.Holding()
	if err := inventory.Return(&stock, &held, quantity); err != nil {
		return UsageResult{}, invalid("Invalid quantity", err)
	}
	res, err := v.client.ReturnMaterial(ctx, taskID, materialID, quantity)
	if err != nil {
		return UsageResult{}, err
	}
	return res, v.Load(ctx)
}

func (v *ProjectView) IncreaseMaterial(ctx context.Context, materialID string, by int) (Material, error) {
	m, ok := v.Material(materialID)
	if !ok {
		return Material{}, &ValidationError{Title: "Unknown material", Message: fmt.Sprintf("material %s is not part of this project", materialID)}
	}
	stock := m.Stock()
	if err := inventory.IncreaseStock(&stock, by); err != nil {
		return Material{}, invalid("Invalid quantity", err)
	}
	updated, err := v.client.IncreaseMaterial(ctx, materialID, by)
	if err != nil {
		return Material{}, err
	}
	return updated, v.Load(ctx)
}

func (v *ProjectView) SetMaterialTotal(ctx context.Context, materialID string, total int) (Material, error) {
	m, ok := v.Material(materialID)
	if !ok {
		return Material{}, &ValidationError{Title: "Unknown material", Message: fmt.Sprintf("material %s is not part of this project", materialID)}
	}
	stock := m.Stock()
	if err := inventory.SetTotal(&stock, total); err != nil {
		return Material{}, invalid("Invalid quantity", err)
	}
	updated, err := v.client.SetMaterialTotal(ctx, materialID, total)
	if err != nil {
		return Material{}, err
	}
	return updated, v.Load(ctx)
}

func (v *ProjectView) CreateMaterial(ctx context.Context, name, unit string, total int) (Material, error) {
	if _, err := inventory.NewMaterial(name, total); err != nil {
		return Material{}, invalid("Invalid material", err)
	}
	for _, m := range v.Materials() {
		if m.Name == name {
			return Material{}, &ValidationError{Title: "Invalid material", Message: fmt.Sprintf("material %q already exists", name)}
		}
	}
	created, err := v.client.CreateMaterial(ctx, v.projectID, name, unit, total)
	if err != nil {
		return Material{}, err
	}
	return created, v.Load(ctx)
}

// AssignSupervisor adds a supervisor to the roster with role.
func (v *ProjectView) AssignSupervisor(ctx context.Context, supervisorID string, role roster.Role) error {
	st := v.snapshot()
	if err := roster.CheckSupervisorAssignment(st.assignments.Members(), supervisorID, role); err != nil {
		return invalid("Cannot assign supervisor", err)
	}
	if _, err := v.client.AssignSupervisor(ctx, v.projectID, supervisorID, role.Level()); err != nil {
		return err
	}
	return v.Load(ctx)
}

// RemoveSupervisor takes a supervisor off the project. A supervisor who is
// Lead on any project cannot be removed, so the directory is consulted as
// well as this project's roster.
func (v *ProjectView) RemoveSupervisor(ctx context.Context, supervisorID string) error {
	for _, s := range v.snapshot().assignments.Supervisors {
		if s.SupervisorID == supervisorID && s.Role == roster.RoleLead {
			return invalid("Cannot remove supervisor", roster.ErrLeadProtected)
		}
	}
	supervisors, err := v.client.Supervisors(ctx)
	if err != nil {
		return err
	}
	for _, s := range supervisors {
		if s.ID == supervisorID && !s.CanRemove {
			return invalid("Cannot remove supervisor", roster.ErrLeadProtected)
		}
	}
	if _, err := v.client.RemoveSupervisor(ctx, v.projectID, supervisorID); err != nil {
		return err
	}
	return v.Load(ctx)
}

func (v *ProjectView) AssignWorker(ctx context.Context, workerID string) error {
	st := v.snapshot()
	for _, w := range st.assignments.Workers {
		if w.ID == workerID {
			return &ValidationError{Title: "Cannot assign worker", Message: "worker is already assigned to this project"}
		}
	}
	if _, err := v.client.AssignWorkerToProject(ctx, v.projectID, workerID); err != nil {
		return err
	}
	return v.Load(ctx)
}

// AssignWorkerToTask adds a worker to a task. Workers are matched by id.
func (v *ProjectView) AssignWorkerToTask(ctx context.Context, taskID, workerID string) error {
	st := v.snapshot()
	task, ok := findTask(st.tasks, taskID)
	if !ok {
		return &ValidationError{Title: "Unknown task", Message: fmt.Sprintf("task %s is not part of this project", taskID)}
	}
	if err := roster.CheckWorkerTaskAssignment(task.WorkerIDs(), workerID); err != nil {
		return invalid("Cannot assign worker", err)
	}
	if st.rosterVisible {
		var member *Person
		for i := range st.assignments.Workers {
			if st.assignments.Workers[i].ID == workerID {
				member = &st.assignments.Workers[i]
			}
		}
		switch {
		case member == nil:
			return invalid("Cannot assign worker", roster.ErrWorkerNotOnProject)
		case member.Suspended:
			return invalid("Cannot assign worker", roster.ErrWorkerSuspended)
		}
	}
	if _, err := v.client.AssignWorkerToTask(ctx, taskID, workerID); err != nil {
		return err
	}
	return v.Load(ctx)
}

func (v *ProjectView) CreateTask(ctx context.Context, t NewTask) (Task, error) {
	t.ProjectID = v.projectID
	created, err := v.client.CreateTask(ctx, t)
	if err != nil {
		return Task{}, err
	}
	return created, v.Load(ctx)
}

func (v *ProjectView) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	if _, err := v.client.UpdateTaskStatus(ctx, taskID, status); err != nil {
		return err
	}
	return v.Load(ctx)
}

func (v *ProjectView) UpdateStatus(ctx context.Context, status string) error {
	if _, err := v.client.UpdateProjectStatus(ctx, v.projectID, status); err != nil {
		return err
	}
	return v.Load(ctx)
}

func findTask(tasks []Task, id string) (Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

func findMaterial(materials []Material, id string) (Material, bool) {
	for _, m := range materials {
		if m.ID == id {
			return m, true
		}
	}
	return Material{}, false
}
