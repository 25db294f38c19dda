package models

import (
	"time"
)

type Task struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ProjectID   uint           `gorm:"not null;index" json:"project_id"`
	Project     *Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Name        string         `gorm:"not null;size:200" json:"name"`
	Description string         `gorm:"size:1000" json:"description"`
	DueDate     *time.Time     `json:"due_date"`
	Status      TaskStatus     `gorm:"not null;size:20" json:"status"`
	CompletedAt *time.Time     `gorm:"index" json:"completed_at"`
	Workers     []TaskWorker   `gorm:"foreignKey:TaskID" json:"workers,omitempty"`
	Materials   []TaskMaterial `gorm:"foreignKey:TaskID" json:"materials,omitempty"`
}

// WorkerIDs returns the persistent ids of the workers on the task.
func (t *Task) WorkerIDs() []uint {
	ids := make([]uint, 0, len(t.Workers))
	for _, w := range t.Workers {
		ids = append(ids, w.UserID)
	}
	return ids
}

// Allocation returns the task's allocation of a material, or nil.
func (t *Task) Allocation(materialID uint) *TaskMaterial {
	for i := range t.Materials {
		if t.Materials[i].MaterialID == materialID {
			return &t.Materials[i]
		}
	}
	return nil
}
