package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"equipment-system/internal/dto"
	"equipment-system/internal/entities"
	"equipment-system/internal/repositories"
	apperrors "equipment-system/pkg/errors"
	"equipment-system/pkg/types"
	"equipment-system/pkg/utils"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

func EquipmentCacheKey(id uint64) string {
	return fmt.Sprintf("equipment:%d", id)
}

type EquipmentServiceInterface interface {
	CreateEquipment(ctx context.Context, payload dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error)
	FindEquipment(ctx context.Context, id uint64) (*dto.EquipmentDTO, error)
	GetEquipments(ctx context.Context, filter types.Filter) (*dto.EquipmentListDTO, error)
	GetEquipmentsByStatus(ctx context.Context, status string, filter types.Filter) (*dto.EquipmentListDTO, error)
	GetEquipmentsByType(ctx context.Context, equipmentType string, filter types.Filter) (*dto.EquipmentListDTO, error)
	GetMyEquipments(ctx context.Context, userID uint64, filter types.Filter) (*dto.EquipmentListDTO, error)
	GetMyEquipmentById(ctx context.Context, equipmentID, userID uint64) (*dto.EquipmentDTO, error)
	UpdateEquipment(ctx context.Context, id uint64, payload dto.UpdateEquipmentDTO) (*dto.EquipmentDTO, error)
	DeleteEquipment(ctx context.Context, id uint64) error
	UpdateEquipmentStatus(ctx context.Context, id uint64, status string) (*dto.EquipmentDTO, error)
	AssignEquipmentToUser(ctx context.Context, equipmentID, userID, assignedBy uint64, notes *string, expectedReturn *time.Time) (*dto.EquipmentDTO, error)
	ReturnEquipment(ctx context.Context, equipmentID uint64, returnNotes *string) (*dto.EquipmentDTO, error)
	GetEquipmentAssignments(ctx context.Context, equipmentID uint64) ([]dto.AssignmentDTO, error)
	GetEquipmentStatusHistory(ctx context.Context, equipmentID uint64) ([]entities.StatusHistory, error)
	Observers() *ObserverRegistry
}

type EquipmentService struct {
	equipmentRepo     repositories.EquipmentRepositoryInterface
	assignmentRepo    repositories.AssignmentRepositoryInterface
	userRepo          repositories.UserRepositoryInterface
	statusHistoryRepo repositories.StatusHistoryRepositoryInterface
	cacheRepo         repositories.CacheRepositoryInterface
	txManager         repositories.TxManagerInterface
	factory           *EquipmentFactoryManager
	observers         *ObserverRegistry
	cacheTTL          time.Duration
	logger            *zap.Logger
}

func NewEquipmentService(
	equipmentRepo repositories.EquipmentRepositoryInterface,
	assignmentRepo repositories.AssignmentRepositoryInterface,
	userRepo repositories.UserRepositoryInterface,
	statusHistoryRepo repositories.StatusHistoryRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	txManager repositories.TxManagerInterface,
	factory *EquipmentFactoryManager,
	observers *ObserverRegistry,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *EquipmentService {
	return &EquipmentService{
		equipmentRepo:     equipmentRepo,
		assignmentRepo:    assignmentRepo,
		userRepo:          userRepo,
		statusHistoryRepo: statusHistoryRepo,
		cacheRepo:         cacheRepo,
		txManager:         txManager,
		factory:           factory,
		observers:         observers,
		cacheTTL:          cacheTTL,
		logger:            logger,
	}
}

func (s *EquipmentService) Observers() *ObserverRegistry {
	return s.observers
}

func (s *EquipmentService) CreateEquipment(ctx context.Context, payload dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error) {
	equipment, err := s.factory.CreateEquipment(entities.EquipmentType(strings.TrimSpace(payload.Type)), EquipmentCreationData{
		Name:      payload.Name,
		Brand:     payload.Brand,
		ModelName: payload.ModelName,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.equipmentRepo.Create(ctx, equipment)
	if err != nil {
		s.logger.Error("failed to create equipment", zap.String("name", equipment.Name), zap.Error(err))
		return nil, err
	}
	s.logger.Info("equipment created", zap.Uint64("equipmentID", created.ID), zap.String("type", string(created.Type)))

	res := dto.NewEquipmentDTO(created)
	return &res, nil
}

func (s *EquipmentService) findEntity(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Equipment, error) {
	e, err := s.equipmentRepo.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("equipment", id)
		}
		return nil, err
	}
	return e, nil
}

func (s *EquipmentService) FindEquipment(ctx context.Context, id uint64) (*dto.EquipmentDTO, error) {
	key := EquipmentCacheKey(id)
	if cached, err := s.cacheRepo.Get(ctx, key); err == nil {
		var res dto.EquipmentDTO
		if jsonErr := json.Unmarshal([]byte(cached), &res); jsonErr == nil {
			return &res, nil
		}
		s.logger.Warn("discarding unreadable cache entry", zap.String("key", key))
	} else if !errors.Is(err, repositories.ErrCacheMiss) {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	e, err := s.findEntity(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	res := dto.NewEquipmentDTO(e)

	if raw, err := json.Marshal(res); err == nil {
		if err := s.cacheRepo.Set(ctx, key, raw, s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return &res, nil
}

func (s *EquipmentService) invalidate(ctx context.Context, id uint64) {
	if err := s.cacheRepo.Del(ctx, EquipmentCacheKey(id)); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Uint64("equipmentID", id), zap.Error(err))
	}
}

func (s *EquipmentService) list(ctx context.Context, filter types.Filter, q repositories.EquipmentQuery) (*dto.EquipmentListDTO, error) {
	items, total, err := s.equipmentRepo.List(ctx, filter, q)
	if err != nil {
		return nil, err
	}
	res := &dto.EquipmentListDTO{
		Items:      make([]dto.EquipmentDTO, 0, len(items)),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: types.TotalPages(total, filter.Limit),
	}
	for i := range items {
		res.Items = append(res.Items, dto.NewEquipmentDTO(&items[i]))
	}
	return res, nil
}

func (s *EquipmentService) GetEquipments(ctx context.Context, filter types.Filter) (*dto.EquipmentListDTO, error) {
	return s.list(ctx, filter, repositories.EquipmentQuery{})
}

func (s *EquipmentService) GetEquipmentsByStatus(ctx context.Context, status string, filter types.Filter) (*dto.EquipmentListDTO, error) {
	st := entities.EquipmentStatus(strings.ToLower(status))
	if !st.Valid() {
		return nil, apperrors.NewValidationError("status", "unknown equipment status %q", status)
	}
	return s.list(ctx, filter, repositories.EquipmentQuery{Status: &st})
}

func (s *EquipmentService) GetEquipmentsByType(ctx context.Context, equipmentType string, filter types.Filter) (*dto.EquipmentListDTO, error) {
	t := entities.EquipmentType(strings.ToLower(equipmentType))
	if !t.Valid() {
		return nil, &apperrors.UnknownTypeError{Type: equipmentType}
	}
	return s.list(ctx, filter, repositories.EquipmentQuery{Type: &t})
}

func (s *EquipmentService) GetMyEquipments(ctx context.Context, userID uint64, filter types.Filter) (*dto.EquipmentListDTO, error) {
	return s.list(ctx, filter, repositories.EquipmentQuery{AssignedTo: &userID})
}

// GetMyEquipmentById returns nil without error when the equipment does not exist.
func (s *EquipmentService) GetMyEquipmentById(ctx context.Context, equipmentID, userID uint64) (*dto.EquipmentDTO, error) {
	e, err := s.equipmentRepo.FindByID(ctx, nil, equipmentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !e.IsAssignedTo(userID) {
		return nil, &apperrors.ForbiddenError{Message: "equipment is not assigned to you"}
	}
	res := dto.NewEquipmentDTO(e)
	return &res, nil
}

func (s *EquipmentService) UpdateEquipment(ctx context.Context, id uint64, payload dto.UpdateEquipmentDTO) (*dto.EquipmentDTO, error) {
	e, err := s.findEntity(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if payload.IsEmpty() {
		res := dto.NewEquipmentDTO(e)
		return &res, nil
	}

	if payload.Name.Valid {
		e.Name = strings.TrimSpace(payload.Name.String)
	}
	if payload.Brand.Valid {
		e.Brand = strings.TrimSpace(payload.Brand.String)
	}
	if payload.ModelName.Valid {
		e.ModelName = strings.TrimSpace(payload.ModelName.String)
	}
	if _, err := validateCreationData(EquipmentCreationData{Name: e.Name, Brand: e.Brand, ModelName: e.ModelName}); err != nil {
		return nil, err
	}

	updated, err := s.equipmentRepo.UpdateFields(ctx, e)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("equipment", id)
		}
		return nil, err
	}
	s.invalidate(ctx, id)

	res := dto.NewEquipmentDTO(updated)
	return &res, nil
}

func (s *EquipmentService) DeleteEquipment(ctx context.Context, id uint64) error {
	e, err := s.findEntity(ctx, nil, id)
	if err != nil {
		return err
	}
	if e.IsAssigned() {
		return apperrors.NewConflictError("equipment %d is assigned and must be returned before deletion", id)
	}

	deleted, err := s.equipmentRepo.DeleteUnlessAssigned(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NewConflictError("equipment %d changed while deleting", id)
	}
	s.invalidate(ctx, id)
	s.logger.Info("equipment deleted", zap.Uint64("equipmentID", id))
	return nil
}

// UpdateEquipmentStatus writes only the status column. It never touches
// assigned_to or assignment records; AssignEquipmentToUser and
// ReturnEquipment own that bookkeeping.
func (s *EquipmentService) UpdateEquipmentStatus(ctx context.Context, id uint64, status string) (*dto.EquipmentDTO, error) {
	newStatus := entities.EquipmentStatus(strings.ToLower(strings.TrimSpace(status)))
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("status", "unknown equipment status %q", status)
	}

	e, err := s.findEntity(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	oldStatus := e.Status
	if oldStatus == entities.EquipmentStatusAssigned && newStatus == entities.EquipmentStatusAssigned {
		return nil, &apperrors.InvalidTransitionError{From: string(oldStatus), To: string(newStatus)}
	}

	updated, err := s.equipmentRepo.UpdateStatusIf(ctx, nil, id, oldStatus, newStatus)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	s.observers.Notify(ctx, id, oldStatus, newStatus, updated.Name)

	res := dto.NewEquipmentDTO(updated)
	return &res, nil
}

func (s *EquipmentService) AssignEquipmentToUser(ctx context.Context, equipmentID, userID, assignedBy uint64, notes *string, expectedReturn *time.Time) (*dto.EquipmentDTO, error) {
	logger := s.logger.With(zap.Uint64("equipmentID", equipmentID), zap.Uint64("userID", userID), zap.Uint64("assignedBy", assignedBy))

	e, err := s.findEntity(ctx, nil, equipmentID)
	if err != nil {
		return nil, err
	}
	if !e.IsAvailable() {
		return nil, &apperrors.NotAvailableError{EquipmentID: equipmentID, Status: string(e.Status)}
	}

	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("user", userID)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.NewValidationError("user_id", "user %d is deactivated", userID)
	}
	if expectedReturn != nil && !expectedReturn.After(time.Now()) {
		return nil, apperrors.NewValidationError("expected_return_date", "expected return date must be in the future")
	}

	var updated *entities.Equipment
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		// a direct status write away from assigned leaves the previous loan active
		stale, err := s.assignmentRepo.FindActiveByEquipment(ctx, tx, equipmentID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
		case err != nil:
			return err
		default:
			logger.Warn("data consistency: available equipment has an active assignment, cancelling it",
				zap.Uint64("assignmentID", stale.ID), zap.Uint64("previousUserID", stale.UserID))
			if _, err := s.assignmentRepo.MarkCancelled(ctx, tx, stale.ID); err != nil {
				return err
			}
		}

		assignment, err := s.assignmentRepo.Create(ctx, tx, &entities.Assignment{
			EquipmentID:        equipmentID,
			UserID:             userID,
			AssignedBy:         assignedBy,
			AssignmentDate:     time.Now(),
			ExpectedReturnDate: expectedReturn,
			Status:             entities.AssignmentStatusActive,
			Notes:              notes,
		})
		if err != nil {
			return err
		}
		updated, err = s.equipmentRepo.MarkAssigned(ctx, tx, equipmentID, userID, assignment.ID)
		return err
	})
	if err != nil {
		logger.Warn("assignment failed", zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx, equipmentID)
	logger.Info("equipment assigned")

	s.observers.Notify(ctx, equipmentID, entities.EquipmentStatusAvailable, entities.EquipmentStatusAssigned, updated.Name)

	res := dto.NewEquipmentDTO(updated)
	return &res, nil
}

func (s *EquipmentService) ReturnEquipment(ctx context.Context, equipmentID uint64, returnNotes *string) (*dto.EquipmentDTO, error) {
	logger := s.logger.With(zap.Uint64("equipmentID", equipmentID))

	e, err := s.findEntity(ctx, nil, equipmentID)
	if err != nil {
		return nil, err
	}
	if !e.IsAssigned() {
		return nil, &apperrors.NotAssignedError{EquipmentID: equipmentID, Status: string(e.Status)}
	}

	var updated *entities.Equipment
	err = s.txManager.RunInTransaction(ctx, func(tx pgx.Tx) error {
		active, err := s.assignmentRepo.FindActiveByEquipment(ctx, tx, equipmentID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			logger.Warn("data consistency: assigned equipment has no active assignment, returning anyway")
		case err != nil:
			return err
		default:
			if _, err := s.assignmentRepo.MarkReturned(ctx, tx, active.ID, returnNotes); err != nil {
				return err
			}
		}
		updated, err = s.equipmentRepo.MarkReturned(ctx, tx, equipmentID)
		return err
	})
	if err != nil {
		logger.Warn("return failed", zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx, equipmentID)
	logger.Info("equipment returned", zap.String("returnNotes", utils.SafeDeref(returnNotes)))

	s.observers.Notify(ctx, equipmentID, entities.EquipmentStatusAssigned, entities.EquipmentStatusAvailable, updated.Name)

	res := dto.NewEquipmentDTO(updated)
	return &res, nil
}

func (s *EquipmentService) GetEquipmentAssignments(ctx context.Context, equipmentID uint64) ([]dto.AssignmentDTO, error) {
	if _, err := s.findEntity(ctx, nil, equipmentID); err != nil {
		return nil, err
	}
	items, err := s.assignmentRepo.ListByEquipment(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	res := make([]dto.AssignmentDTO, 0, len(items))
	for i := range items {
		res = append(res, dto.NewAssignmentDTO(&items[i]))
	}
	return res, nil
}

func (s *EquipmentService) GetEquipmentStatusHistory(ctx context.Context, equipmentID uint64) ([]entities.StatusHistory, error) {
	if _, err := s.findEntity(ctx, nil, equipmentID); err != nil {
		return nil, err
	}
	return s.statusHistoryRepo.ListByEquipment(ctx, equipmentID)
}
