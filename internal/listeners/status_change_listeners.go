package listeners

import (
	"context"
	"fmt"

	"equipment-system/internal/dto"
	"equipment-system/internal/entities"
	"equipment-system/internal/events"
	"equipment-system/internal/repositories"
	"equipment-system/pkg/eventbus"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const StatusChangedMessageType = "equipment_status_changed"

type StatusHistoryListener struct {
	repo   repositories.StatusHistoryRepositoryInterface
	logger *zap.Logger
}

func NewStatusHistoryListener(repo repositories.StatusHistoryRepositoryInterface, logger *zap.Logger) *StatusHistoryListener {
	return &StatusHistoryListener{repo: repo, logger: logger}
}

func (l *StatusHistoryListener) Handle(ctx context.Context, event eventbus.Event) error {
	e, ok := event.(events.EquipmentStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	row := &entities.StatusHistory{
		EquipmentID:   e.EquipmentID,
		EquipmentName: e.EquipmentName,
		OldStatus:     e.OldStatus,
		NewStatus:     e.NewStatus,
		TxID:          uuid.New(),
		ChangedAt:     e.ChangedAt,
	}
	if err := l.repo.Create(ctx, row); err != nil {
		return err
	}
	l.logger.Debug("status history persisted", zap.Uint64("equipmentID", e.EquipmentID), zap.String("txID", row.TxID.String()))
	return nil
}

type roleBroadcaster interface {
	BroadcastToRole(role string, payload interface{}, messageType string) (int, error)
}

// WebSocketNotificationListener pushes status changes to connected admins.
type WebSocketNotificationListener struct {
	hub    roleBroadcaster
	logger *zap.Logger
}

func NewWebSocketNotificationListener(hub roleBroadcaster, logger *zap.Logger) *WebSocketNotificationListener {
	return &WebSocketNotificationListener{hub: hub, logger: logger}
}

func (l *WebSocketNotificationListener) Handle(_ context.Context, event eventbus.Event) error {
	e, ok := event.(events.EquipmentStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	payload := dto.StatusChangeDTO{
		EquipmentID:   e.EquipmentID,
		EquipmentName: e.EquipmentName,
		OldStatus:     string(e.OldStatus),
		NewStatus:     string(e.NewStatus),
		ChangedAt:     e.ChangedAt,
	}
	sent, err := l.hub.BroadcastToRole(string(entities.UserRoleAdmin), payload, StatusChangedMessageType)
	if err != nil {
		return err
	}
	l.logger.Debug("status change broadcast", zap.Uint64("equipmentID", e.EquipmentID), zap.Int("recipients", sent))
	return nil
}
