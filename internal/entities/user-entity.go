package entities

import (
	"equipment-system/pkg/types"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleUser
}

type User struct {
	ID       uint64   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"-"`
	Role     UserRole `json:"role"`
	IsActive bool     `json:"is_active"`

	types.BaseEntity
}
