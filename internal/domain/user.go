package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAccountant Role = "accountant"
	RoleStaff      Role = "staff"
	RoleTeacher    Role = "teacher"
	RoleHR         Role = "hr"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAccountant, RoleStaff, RoleTeacher, RoleHR:
		return true
	}
	return false
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
}
