package client

import (
	"time"

	"twintrack/inventory"
	"twintrack/roster"
)

// Canonical records. Every payload is normalized into one of these before
// it leaves the client package; ids are kept as strings because the
// backend has sent both numbers and strings for them.

type Project struct {
	ID          string
	Name        string
	Code        string
	Description string
	Status      string
}

type Material struct {
	ID                string
	ProjectID         string
	Name              string
	Unit              string
	TotalQuantity     int
	AvailableQuantity int
}

func (m Material) Stock() inventory.Material {
	return inventory.Material{Name: m.Name, Total: m.TotalQuantity, Available: m.AvailableQuantity}
}

// Allocation is a task's holding of one material. Used is always derived.
type Allocation struct {
	MaterialID        string
	TaskID            string
	MaterialName      string
	Unit              string
	QuantityAssigned  int
	QuantityRemaining int
}

func (a Allocation) Used() int {
	return a.QuantityAssigned - a.QuantityRemaining
}

func (a Allocation) Holding() inventory.Allocation {
	return inventory.Allocation{Assigned: a.QuantityAssigned, Remaining: a.QuantityRemaining}
}

type Person struct {
	ID        string
	Name      string
	Username  string
	Suspended bool
}

type Task struct {
	ID              string
	ProjectID       string
	Name            string
	Description     string
	DueDate         *time.Time
	Status          string
	AssignedWorkers []Person
	Materials       []Allocation
}

// WorkerIDs returns the persistent ids of the task's workers.
func (t Task) WorkerIDs() []string {
	ids := make([]string, 0, len(t.AssignedWorkers))
	for _, w := range t.AssignedWorkers {
		ids = append(ids, w.ID)
	}
	return ids
}

// Allocation returns the task's allocation of materialID, if any.
func (t Task) Allocation(materialID string) (Allocation, bool) {
	for _, a := range t.Materials {
		if a.MaterialID == materialID {
			return a, true
		}
	}
	return Allocation{}, false
}

// HasWorker reports whether workerID is assigned, matching by id only.
func (t Task) HasWorker(workerID string) bool {
	return roster.CheckWorkerTaskAssignment(t.WorkerIDs(), workerID) != nil
}

type ProjectSupervisor struct {
	SupervisorID string
	Name         string
	Role         roster.Role
}

type Assignments struct {
	ProjectID   string
	ProjectName string
	Supervisors []ProjectSupervisor
	Workers     []Person
}

func (a Assignments) Members() []roster.Member[string] {
	members := make([]roster.Member[string], 0, len(a.Supervisors))
	for _, s := range a.Supervisors {
		members = append(members, roster.Member[string]{ID: s.SupervisorID, Role: s.Role})
	}
	return members
}

type Supervisor struct {
	Person
	Roles []roster.Role
	roster.Actions
}

type WorkerPage struct {
	Items    []Person
	Total    int
	Page     int
	PageSize int
}

type DailyCount struct {
	Date           string
	TasksCompleted int
}

// UsageResult is the backend's answer to a usage report or return.
type UsageResult struct {
	Allocation Allocation
	Material   Material
	Returned   int
}
