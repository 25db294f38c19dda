package models

import (
	"time"
)

type Project struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Name        string              `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Code        string              `gorm:"uniqueIndex;not null;size:40" json:"code"`
	Description string              `gorm:"size:1000" json:"description"`
	Status      ProjectStatus       `gorm:"not null;size:20" json:"status"`
	Materials   []Material          `gorm:"foreignKey:ProjectID" json:"materials,omitempty"`
	Supervisors []ProjectSupervisor `gorm:"foreignKey:ProjectID" json:"supervisors,omitempty"`
	Workers     []ProjectWorker     `gorm:"foreignKey:ProjectID" json:"workers,omitempty"`
	Tasks       []Task              `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}
