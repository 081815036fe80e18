package services

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"equipment-system/internal/entities"

	"go.uber.org/zap"
)

// EquipmentObserver receives every equipment status change.
type EquipmentObserver interface {
	Update(ctx context.Context, equipmentID uint64, oldStatus, newStatus entities.EquipmentStatus, equipmentName string) error
}

// ObserverRegistry keeps observers in attachment order. Membership is by
// identity. Observers whose dynamic type is not comparable cannot be matched,
// so each Attach of one adds a new entry and Detach never finds it.
type ObserverRegistry struct {
	mu        sync.RWMutex
	observers []EquipmentObserver
	logger    *zap.Logger
}

func NewObserverRegistry(logger *zap.Logger) *ObserverRegistry {
	return &ObserverRegistry{logger: logger}
}

func isComparable(o EquipmentObserver) bool {
	t := reflect.TypeOf(o)
	return t != nil && t.Comparable()
}

// sameObserver reports identity. A comparable struct can still hold a
// non-comparable value in an interface field, which makes == panic.
func sameObserver(a, b EquipmentObserver) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

func (r *ObserverRegistry) indexOf(o EquipmentObserver) int {
	if !isComparable(o) {
		return -1
	}
	for i, existing := range r.observers {
		if sameObserver(existing, o) {
			return i
		}
	}
	return -1
}

func (r *ObserverRegistry) Attach(o EquipmentObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o == nil {
		r.logger.Warn("ignoring nil observer")
		return
	}
	if !isComparable(o) {
		r.logger.Warn("observer type is not comparable, duplicates cannot be detected", zap.String("observer", fmt.Sprintf("%T", o)))
	} else if r.indexOf(o) >= 0 {
		r.logger.Info("observer already attached", zap.String("observer", fmt.Sprintf("%T", o)))
		return
	}
	r.observers = append(r.observers, o)
	r.logger.Info("observer attached", zap.String("observer", fmt.Sprintf("%T", o)), zap.Int("total", len(r.observers)))
}

func (r *ObserverRegistry) Detach(o EquipmentObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(o)
	if i < 0 {
		r.logger.Debug("observer not attached, nothing to detach", zap.String("observer", fmt.Sprintf("%T", o)))
		return
	}
	r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
	r.logger.Info("observer detached", zap.String("observer", fmt.Sprintf("%T", o)), zap.Int("total", len(r.observers)))
}

func (r *ObserverRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers)
}

// Notify calls every observer in order on the caller's goroutine. A failing or
// panicking observer is logged and does not stop the rest.
func (r *ObserverRegistry) Notify(ctx context.Context, equipmentID uint64, oldStatus, newStatus entities.EquipmentStatus, equipmentName string) {
	r.mu.RLock()
	snapshot := make([]EquipmentObserver, len(r.observers))
	copy(snapshot, r.observers)
	r.mu.RUnlock()

	for _, o := range snapshot {
		r.notifyOne(ctx, o, equipmentID, oldStatus, newStatus, equipmentName)
	}
}

func (r *ObserverRegistry) notifyOne(ctx context.Context, o EquipmentObserver, equipmentID uint64, oldStatus, newStatus entities.EquipmentStatus, equipmentName string) {
	logger := r.logger.With(
		zap.String("observer", fmt.Sprintf("%T", o)),
		zap.Uint64("equipmentID", equipmentID),
		zap.String("oldStatus", string(oldStatus)),
		zap.String("newStatus", string(newStatus)),
	)
	defer func() {
		if p := recover(); p != nil {
			logger.Error("observer panicked", zap.Any("panic", p))
		}
	}()
	if err := o.Update(ctx, equipmentID, oldStatus, newStatus, equipmentName); err != nil {
		logger.Error("observer failed", zap.Error(err))
	}
}
