package entities

import (
	"equipment-system/pkg/types"
)

type EquipmentType string

const (
	EquipmentTypeLaptop  EquipmentType = "laptop"
	EquipmentTypeMonitor EquipmentType = "monitor"
	EquipmentTypePrinter EquipmentType = "printer"
)

// AllEquipmentTypes is the closed set of types. Every member must have a factory.
func AllEquipmentTypes() []EquipmentType {
	return []EquipmentType{EquipmentTypeLaptop, EquipmentTypeMonitor, EquipmentTypePrinter}
}

func (t EquipmentType) Valid() bool {
	for _, known := range AllEquipmentTypes() {
		if t == known {
			return true
		}
	}
	return false
}

type EquipmentStatus string

const (
	EquipmentStatusAvailable   EquipmentStatus = "available"
	EquipmentStatusAssigned    EquipmentStatus = "assigned"
	EquipmentStatusMaintenance EquipmentStatus = "maintenance"
	EquipmentStatusDamaged     EquipmentStatus = "damaged"
	EquipmentStatusRetired     EquipmentStatus = "retired"
)

func AllEquipmentStatuses() []EquipmentStatus {
	return []EquipmentStatus{
		EquipmentStatusAvailable,
		EquipmentStatusAssigned,
		EquipmentStatusMaintenance,
		EquipmentStatusDamaged,
		EquipmentStatusRetired,
	}
}

func (s EquipmentStatus) Valid() bool {
	for _, known := range AllEquipmentStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// Equipment is owned by the persistence layer; services hold it only for the
// duration of one operation. Assign and return keep AssignedTo in step with
// Status; a direct status update leaves AssignedTo untouched.
type Equipment struct {
	ID                uint64          `json:"id"`
	Name              string          `json:"name"`
	Type              EquipmentType   `json:"type"`
	Brand             string          `json:"brand"`
	ModelName         string          `json:"model_name"`
	Status            EquipmentStatus `json:"status"`
	AssignedTo        *uint64         `json:"assigned_to"`
	AssignmentHistory []uint64        `json:"assignment_history"`

	types.BaseEntity
}

func (e *Equipment) IsAvailable() bool {
	return e.Status == EquipmentStatusAvailable
}

func (e *Equipment) IsAssigned() bool {
	return e.Status == EquipmentStatusAssigned
}

func (e *Equipment) InMaintenance() bool {
	return e.Status == EquipmentStatusMaintenance
}

func (e *Equipment) IsAssignedTo(userID uint64) bool {
	return e.AssignedTo != nil && *e.AssignedTo == userID
}
