package dto

import (
	"time"

	"equipment-system/internal/entities"

	"github.com/aarondl/null/v8"
)

type CreateUserDTO struct {
	Name     string `json:"name"     validate:"required,notblank,min=2,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role"     validate:"required,user_role"`
}

type UpdateUserDTO struct {
	Name  null.String `json:"name"  validate:"omitempty,notblank,min=2,max=100"`
	Email null.String `json:"email" validate:"omitempty,email"`
	Role  null.String `json:"role"  validate:"omitempty,user_role"`
}

type UserDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserListDTO struct {
	Items      []UserDTO `json:"items"`
	Total      uint64    `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

func NewUserDTO(u *entities.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
