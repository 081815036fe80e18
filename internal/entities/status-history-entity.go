package entities

import (
	"time"

	"github.com/google/uuid"
)

// StatusHistory is the persisted audit row for one equipment status change.
type StatusHistory struct {
	ID            uint64          `json:"id"`
	EquipmentID   uint64          `json:"equipment_id"`
	EquipmentName string          `json:"equipment_name"`
	OldStatus     EquipmentStatus `json:"old_status"`
	NewStatus     EquipmentStatus `json:"new_status"`
	TxID          uuid.UUID       `json:"tx_id"`
	ChangedAt     time.Time       `json:"changed_at"`
}
