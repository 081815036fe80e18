package dto

import (
	"time"

	"equipment-system/internal/entities"

	"github.com/aarondl/null/v8"
)

type CreateEquipmentDTO struct {
	Name      string `json:"name"       validate:"required,notblank,min=2,max=100"`
	Type      string `json:"type"       validate:"required,equipment_type"`
	Brand     string `json:"brand"      validate:"required,notblank,min=2,max=50"`
	ModelName string `json:"model_name" validate:"required,notblank,min=2,max=50"`
}

// UpdateEquipmentDTO is a partial update: a field is applied only when Valid.
// Status, type and assignment are deliberately absent.
type UpdateEquipmentDTO struct {
	Name      null.String `json:"name"       validate:"omitempty,notblank,min=2,max=100"`
	Brand     null.String `json:"brand"      validate:"omitempty,notblank,min=2,max=50"`
	ModelName null.String `json:"model_name" validate:"omitempty,notblank,min=2,max=50"`
}

func (d UpdateEquipmentDTO) IsEmpty() bool {
	return !d.Name.Valid && !d.Brand.Valid && !d.ModelName.Valid
}

type UpdateEquipmentStatusDTO struct {
	Status string  `json:"status" validate:"required,equipment_status"`
	Notes  *string `json:"notes"  validate:"omitempty,max=500"`
}

type AssignEquipmentDTO struct {
	EquipmentID        uint64     `json:"equipment_id"         validate:"required,gt=0"`
	UserID             uint64     `json:"user_id"              validate:"required,gt=0"`
	Notes              *string    `json:"notes"                validate:"omitempty,max=500"`
	ExpectedReturnDate *time.Time `json:"expected_return_date" validate:"omitempty"`
}

type ReturnEquipmentDTO struct {
	ReturnNotes *string `json:"return_notes" validate:"omitempty,max=500"`
}

type EquipmentDTO struct {
	ID                uint64    `json:"id"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	Brand             string    `json:"brand"`
	ModelName         string    `json:"model_name"`
	Status            string    `json:"status"`
	AssignedTo        *uint64   `json:"assigned_to"`
	AssignmentHistory []uint64  `json:"assignment_history"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type EquipmentListDTO struct {
	Items      []EquipmentDTO `json:"items"`
	Total      uint64         `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

type AssignmentDTO struct {
	ID                 uint64     `json:"id"`
	EquipmentID        uint64     `json:"equipment_id"`
	UserID             uint64     `json:"user_id"`
	AssignedBy         uint64     `json:"assigned_by"`
	AssignmentDate     time.Time  `json:"assignment_date"`
	ExpectedReturnDate *time.Time `json:"expected_return_date,omitempty"`
	ReturnDate         *time.Time `json:"return_date,omitempty"`
	Status             string     `json:"status"`
	Notes              *string    `json:"notes,omitempty"`
	ReturnNotes        *string    `json:"return_notes,omitempty"`
}

type StatusChangeDTO struct {
	EquipmentID   uint64    `json:"equipment_id"`
	EquipmentName string    `json:"equipment_name"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	ChangedAt     time.Time `json:"changed_at"`
}

type ImportResultDTO struct {
	Created int      `json:"created"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func NewEquipmentDTO(e *entities.Equipment) EquipmentDTO {
	history := e.AssignmentHistory
	if history == nil {
		history = []uint64{}
	}
	return EquipmentDTO{
		ID:                e.ID,
		Name:              e.Name,
		Type:              string(e.Type),
		Brand:             e.Brand,
		ModelName:         e.ModelName,
		Status:            string(e.Status),
		AssignedTo:        e.AssignedTo,
		AssignmentHistory: history,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

func NewAssignmentDTO(a *entities.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:                 a.ID,
		EquipmentID:        a.EquipmentID,
		UserID:             a.UserID,
		AssignedBy:         a.AssignedBy,
		AssignmentDate:     a.AssignmentDate,
		ExpectedReturnDate: a.ExpectedReturnDate,
		ReturnDate:         a.ReturnDate,
		Status:             string(a.Status),
		Notes:              a.Notes,
		ReturnNotes:        a.ReturnNotes,
	}
}
