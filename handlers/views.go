package handlers

import (
	"time"

	"twintrack/database"
	"twintrack/models"
	"twintrack/roster"
)

// Views are the JSON shapes the dashboard consumes.

type userView struct {
	ID        uint        `json:"id"`
	Username  string      `json:"username"`
	FullName  string      `json:"fullName"`
	Role      models.Role `json:"role"`
	Suspended bool        `json:"suspended"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.DisplayName(),
		Role:      u.Role,
		Suspended: u.Suspended,
	}
}

type materialView struct {
	ID                uint   `json:"id"`
	ProjectID         uint   `json:"projectId"`
	Name              string `json:"name"`
	Unit              string `json:"unit"`
	TotalQuantity     int    `json:"totalQuantity"`
	AvailableQuantity int    `json:"availableQuantity"`
}

func newMaterialView(m *models.Material) materialView {
	return materialView{
		ID:                m.ID,
		ProjectID:         m.ProjectID,
		Name:              m.Name,
		Unit:              m.Unit,
		TotalQuantity:     m.TotalQuantity,
		AvailableQuantity: m.AvailableQuantity,
	}
}

func newMaterialViews(ms []models.Material) []materialView {
	out := make([]materialView, 0, len(ms))
	for i := range ms {
		out = append(out, newMaterialView(&ms[i]))
	}
	return out
}

type allocationView struct {
	MaterialID        uint   `json:"materialId"`
	TaskID            uint   `json:"taskId"`
	MaterialName      string `json:"materialName"`
	Unit              string `json:"unit"`
	QuantityAssigned  int    `json:"quantityAssigned"`
	QuantityRemaining int    `json:"quantityRemaining"`
	QuantityUsed      int    `json:"quantityUsed"`
}

func newAllocationView(tm *models.TaskMaterial) allocationView {
	v := allocationView{
		MaterialID:        tm.MaterialID,
		TaskID:            tm.TaskID,
		QuantityAssigned:  tm.QuantityAssigned,
		QuantityRemaining: tm.QuantityRemaining,
		QuantityUsed:      tm.QuantityUsed(),
	}
	if tm.Material != nil {
		v.MaterialName = tm.Material.Name
		v.Unit = tm.Material.Unit
	}
	return v
}

type taskWorkerView struct {
	ID       uint   `json:"id"`
	FullName string `json:"fullName"`
}

type taskView struct {
	ID              uint              `json:"id"`
	ProjectID       uint              `json:"projectId"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	DueDate         *time.Time        `json:"dueDate"`
	Status          models.TaskStatus `json:"status"`
	CompletedAt     *time.Time        `json:"completedAt"`
	AssignedWorkers []taskWorkerView  `json:"assignedWorkers"`
	Materials       []allocationView  `json:"materials"`
}

func newTaskView(t *models.Task) taskView {
	v := taskView{
		ID:              t.ID,
		ProjectID:       t.ProjectID,
		Name:            t.Name,
		Description:     t.Description,
		DueDate:         t.DueDate,
		Status:          t.Status,
		CompletedAt:     t.CompletedAt,
		AssignedWorkers: make([]taskWorkerView, 0, len(t.Workers)),
		Materials:       make([]allocationView, 0, len(t.Materials)),
	}
	for _, w := range t.Workers {
		wv := taskWorkerView{ID: w.UserID}
		if w.User != nil {
			wv.FullName = w.User.DisplayName()
		}
		v.AssignedWorkers = append(v.AssignedWorkers, wv)
	}
	for i := range t.Materials {
		v.Materials = append(v.Materials, newAllocationView(&t.Materials[i]))
	}
	return v
}

func newTaskViews(ts []models.Task) []taskView {
	out := make([]taskView, 0, len(ts))
	for i := range ts {
		out = append(out, newTaskView(&ts[i]))
	}
	return out
}

type projectView struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Code        string               `json:"code"`
	Description string               `json:"description"`
	Status      models.ProjectStatus `json:"status"`
	CreatedAt   time.Time            `json:"createdAt"`
	Materials   []materialView       `json:"materials,omitempty"`
}

func newProjectView(p *models.Project) projectView {
	v := projectView{
		ID:          p.ID,
		Name:        p.Name,
		Code:        p.Code,
		Description: p.Description,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
	}
	if len(p.Materials) > 0 {
		v.Materials = newMaterialViews(p.Materials)
	}
	return v
}

func newProjectViews(ps []models.Project) []projectView {
	out := make([]projectView, 0, len(ps))
	for i := range ps {
		out = append(out, newProjectView(&ps[i]))
	}
	return out
}

type assignedSupervisorView struct {
	SupervisorID uint        `json:"supervisorId"`
	FullName     string      `json:"fullName"`
	Role         roster.Role `json:"role"`
	Level        int         `json:"level"`
}

type assignedWorkerView struct {
	WorkerID  uint   `json:"workerId"`
	FullName  string `json:"fullName"`
	Suspended bool   `json:"suspended"`
}

type assignmentsView struct {
	ProjectID   uint                     `json:"projectId"`
	ProjectName string                   `json:"projectName"`
	Supervisors []assignedSupervisorView `json:"supervisors"`
	Workers     []assignedWorkerView     `json:"workers"`
	RoleOptions []roster.RoleOption      `json:"roleOptions"`
}

func newAssignmentsView(a *database.ProjectAssignments) assignmentsView {
	v := assignmentsView{
		ProjectID:   a.Project.ID,
		ProjectName: a.Project.Name,
		Supervisors: make([]assignedSupervisorView, 0, len(a.Supervisors)),
		Workers:     make([]assignedWorkerView, 0, len(a.Workers)),
		RoleOptions: roster.RoleOptions(models.Members(a.Supervisors)),
	}
	for _, s := range a.Supervisors {
		sv := assignedSupervisorView{SupervisorID: s.UserID, Role: s.Role, Level: s.Role.Level()}
		if s.User != nil {
			sv.FullName = s.User.DisplayName()
		}
		v.Supervisors = append(v.Supervisors, sv)
	}
	for _, w := range a.Workers {
		wv := assignedWorkerView{WorkerID: w.UserID}
		if w.User != nil {
			wv.FullName = w.User.DisplayName()
			wv.Suspended = w.User.Suspended
		}
		v.Workers = append(v.Workers, wv)
	}
	return v
}

type supervisorView struct {
	userView
	Roles []roster.Role `json:"roles"`
	roster.Actions
}

type usageView struct {
	Allocation allocationView `json:"allocation"`
	Material   materialView   `json:"material"`
	Returned   int            `json:"returned"`
}

func newUsageView(u *database.UsageReport) usageView {
	return usageView{
		Allocation: newAllocationView(&u.Allocation),
		Material:   newMaterialView(&u.Material),
		Returned:   u.Returned,
	}
}
