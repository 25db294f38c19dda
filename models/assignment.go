package models

import (
	"time"

	"twintrack/roster"
)

// ProjectSupervisor places a supervisor on a project with a role.
type ProjectSupervisor struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	ProjectID uint        `gorm:"not null;uniqueIndex:idx_project_supervisor" json:"project_id"`
	Project   *Project    `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    uint        `gorm:"not null;uniqueIndex:idx_project_supervisor;index" json:"user_id"`
	User      *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      roster.Role `gorm:"not null;size:20" json:"role"`
}

// ProjectWorker places a worker on a project roster.
type ProjectWorker struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_project_worker" json:"project_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_project_worker;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TaskWorker assigns a worker to a task.
type TaskWorker struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	TaskID    uint      `gorm:"not null;uniqueIndex:idx_task_worker" json:"task_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_task_worker;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Members converts a project's supervisor rows for the roster rules.
func Members(rows []ProjectSupervisor) []roster.Member[uint] {
	members := make([]roster.Member[uint], 0, len(rows))
	for _, r := range rows {
		members = append(members, roster.Member[uint]{ID: r.UserID, Role: r.Role})
	}
	return members
}
