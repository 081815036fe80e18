package listeners

import (
	"context"
	"sync"
	"time"

	"equipment-system/internal/dto"
	"equipment-system/internal/entities"
	"equipment-system/internal/events"
	"equipment-system/internal/repositories"
	"equipment-system/internal/services"
	"equipment-system/pkg/eventbus"

	"go.uber.org/zap"
)

// AdminNotifierObserver writes a notice for every status change to the log.
type AdminNotifierObserver struct {
	logger *zap.Logger
}

func NewAdminNotifierObserver(logger *zap.Logger) *AdminNotifierObserver {
	return &AdminNotifierObserver{logger: logger}
}

func (o *AdminNotifierObserver) Update(_ context.Context, equipmentID uint64, oldStatus, newStatus entities.EquipmentStatus, equipmentName string) error {
	o.logger.Info("equipment status changed",
		zap.Uint64("equipmentID", equipmentID),
		zap.String("equipmentName", equipmentName),
		zap.String("oldStatus", string(oldStatus)),
		zap.String("newStatus", string(newStatus)),
	)
	return nil
}

// HistoryLoggerObserver keeps an in-process log of changes, oldest first.
// Only the newest maxEntries are retained.
type HistoryLoggerObserver struct {
	mu         sync.RWMutex
	logs       []dto.StatusChangeDTO
	maxEntries int
	now        func() time.Time
	logger     *zap.Logger
}

const defaultHistoryEntries = 1000

func NewHistoryLoggerObserver(logger *zap.Logger) *HistoryLoggerObserver {
	return &HistoryLoggerObserver{
		maxEntries: defaultHistoryEntries,
		now:        time.Now,
		logger:     logger,
	}
}

func (o *HistoryLoggerObserver) Update(_ context.Context, equipmentID uint64, oldStatus, newStatus entities.EquipmentStatus, equipmentName string) error {
	entry := dto.StatusChangeDTO{
		EquipmentID:   equipmentID,
		EquipmentName: equipmentName,
		OldStatus:     string(oldStatus),
		NewStatus:     string(newStatus),
		ChangedAt:     o.now(),
	}

	o.mu.Lock()
	o.logs = append(o.logs, entry)
	if over := len(o.logs) - o.maxEntries; over > 0 {
		o.logs = append([]dto.StatusChangeDTO(nil), o.logs[over:]...)
	}
	o.mu.Unlock()

	o.logger.Debug("status change recorded", zap.Uint64("equipmentID", equipmentID))
	return nil
}

func (o *HistoryLoggerObserver) GetLogs() []dto.StatusChangeDTO {
	o.mu.RLock()
	defer o.mu.RUnlock()
	res := make([]dto.StatusChangeDTO, len(o.logs))
	copy(res, o.logs)
	return res
}

func (o *HistoryLoggerObserver) GetLogsByEquipment(equipmentID uint64) []dto.StatusChangeDTO {
	o.mu.RLock()
	defer o.mu.RUnlock()
	res := make([]dto.StatusChangeDTO, 0)
	for _, l := range o.logs {
		if l.EquipmentID == equipmentID {
			res = append(res, l)
		}
	}
	return res
}

func (o *HistoryLoggerObserver) ClearLogs() {
	o.mu.Lock()
	o.logs = nil
	o.mu.Unlock()
}

// CacheInvalidationObserver drops the cached copy of changed equipment.
type CacheInvalidationObserver struct {
	cacheRepo repositories.CacheRepositoryInterface
}

func NewCacheInvalidationObserver(cacheRepo repositories.CacheRepositoryInterface) *CacheInvalidationObserver {
	return &CacheInvalidationObserver{cacheRepo: cacheRepo}
}

func (o *CacheInvalidationObserver) Update(ctx context.Context, equipmentID uint64, _, _ entities.EquipmentStatus, _ string) error {
	return o.cacheRepo.Del(ctx, services.EquipmentCacheKey(equipmentID))
}

type eventPublisher interface {
	Publish(ctx context.Context, event eventbus.Event)
}

// EventPublisherObserver hands the change to the event bus for asynchronous listeners.
type EventPublisherObserver struct {
	bus eventPublisher
	now func() time.Time
}

func NewEventPublisherObserver(bus eventPublisher) *EventPublisherObserver {
	return &EventPublisherObserver{bus: bus, now: time.Now}
}

func (o *EventPublisherObserver) Update(ctx context.Context, equipmentID uint64, oldStatus, newStatus entities.EquipmentStatus, equipmentName string) error {
	o.bus.Publish(ctx, events.EquipmentStatusChangedEvent{
		EquipmentID:   equipmentID,
		EquipmentName: equipmentName,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		ChangedAt:     o.now(),
	})
	return nil
}
