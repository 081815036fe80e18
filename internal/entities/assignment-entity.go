package entities

import (
	"time"

	"equipment-system/pkg/types"
)

type AssignmentStatus string

const (
	AssignmentStatusActive    AssignmentStatus = "active"
	AssignmentStatusReturned  AssignmentStatus = "returned"
	AssignmentStatusCancelled AssignmentStatus = "cancelled"
)

// Assignment is one loan of one equipment to one user. Rows are never deleted;
// ReturnDate and ReturnNotes are written once when the loan is closed.
type Assignment struct {
	ID                 uint64           `json:"id"`
	EquipmentID        uint64           `json:"equipment_id"`
	UserID             uint64           `json:"user_id"`
	AssignedBy         uint64           `json:"assigned_by"`
	AssignmentDate     time.Time        `json:"assignment_date"`
	ExpectedReturnDate *time.Time       `json:"expected_return_date,omitempty"`
	ReturnDate         *time.Time       `json:"return_date,omitempty"`
	Status             AssignmentStatus `json:"status"`
	Notes              *string          `json:"notes,omitempty"`
	ReturnNotes        *string          `json:"return_notes,omitempty"`

	types.BaseEntity
}

func (a *Assignment) IsActive() bool {
	return a.Status == AssignmentStatusActive
}
