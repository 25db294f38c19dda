package models

import (
	"time"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleWorker     Role = "WORKER"
)

// ParseRole accepts the account role names used on the wire.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleSupervisor, RoleWorker:
		return Role(s), true
	}
	return "", false
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Username     string    `gorm:"uniqueIndex;not null;size:100" json:"username"`
	FullName     string    `gorm:"not null;size:200" json:"full_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         Role      `gorm:"not null;size:20;index" json:"role"`
	Suspended    bool      `gorm:"default:false" json:"suspended"`
}

func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsSupervisor() bool {
	return u.Role == RoleSupervisor
}

func (u *User) IsWorker() bool {
	return u.Role == RoleWorker
}

// CanManageProjects covers project, material, task and roster changes.
func (u *User) CanManageProjects() bool {
	return u.IsAdmin() || u.IsSupervisor()
}

func (u *User) CanManageUsers() bool {
	return u.IsAdmin()
}
