package events

import (
	"time"

	"equipment-system/internal/entities"
)

const EquipmentStatusChanged = "equipment.status.changed"

// EquipmentStatusChangedEvent is published after a status change has been committed.
type EquipmentStatusChangedEvent struct {
	EquipmentID   uint64
	EquipmentName string
	OldStatus     entities.EquipmentStatus
	NewStatus     entities.EquipmentStatus
	ChangedAt     time.Time
}

func (e EquipmentStatusChangedEvent) Name() string {
	return EquipmentStatusChanged
}
