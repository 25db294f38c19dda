package models

import (
	"time"

	"twintrack/inventory"
)

// Material is project-scoped stock. AvailableQuantity never exceeds
// TotalQuantity; the difference is held by task allocations.
type Material struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ProjectID         uint      `gorm:"not null;uniqueIndex:idx_project_material" json:"project_id"`
	Name              string    `gorm:"not null;size:100;uniqueIndex:idx_project_material" json:"name"`
	Unit              string    `gorm:"size:20" json:"unit"`
	TotalQuantity     int       `gorm:"not null" json:"total_quantity"`
	AvailableQuantity int       `gorm:"not null" json:"available_quantity"`
}

func (m *Material) Stock() inventory.Material {
	return inventory.Material{
		Name:      m.Name,
		Total:     m.TotalQuantity,
		Available: m.AvailableQuantity,
	}
}

func (m *Material) SetStock(s inventory.Material) {
	m.TotalQuantity = s.Total
	m.AvailableQuantity = s.Available
}

// TaskMaterial is the allocation of a material to a task.
type TaskMaterial struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	TaskID            uint      `gorm:"not null;uniqueIndex:idx_task_material" json:"task_id"`
	MaterialID        uint      `gorm:"not null;uniqueIndex:idx_task_material;index" json:"material_id"`
	Material          *Material `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	QuantityAssigned  int       `gorm:"not null" json:"quantity_assigned"`
	QuantityRemaining int       `gorm:"not null" json:"quantity_remaining"`
}

func (tm *TaskMaterial) QuantityUsed() int {
	return tm.QuantityAssigned - tm.QuantityRemaining
}

func (tm *TaskMaterial) Holding() inventory.Allocation {
	return inventory.Allocation{
		Assigned:  tm.QuantityAssigned,
		Remaining: tm.QuantityRemaining,
	}
}

func (tm *TaskMaterial) SetHolding(a inventory.Allocation) {
	tm.QuantityAssigned = a.Assigned
	tm.QuantityRemaining = a.Remaining
}
