package services

import (
	"context"
	"errors"
	"strings"

	"equipment-system/internal/dto"
	"equipment-system/internal/entities"
	"equipment-system/internal/repositories"
	apperrors "equipment-system/pkg/errors"
	"equipment-system/pkg/types"
	"equipment-system/pkg/utils"

	"go.uber.org/zap"
)

type UserServiceInterface interface {
	GetUsers(ctx context.Context, filter types.Filter) (*dto.UserListDTO, error)
	FindUser(ctx context.Context, id uint64) (*dto.UserDTO, error)
	CreateUser(ctx context.Context, payload dto.CreateUserDTO) (*dto.UserDTO, error)
	UpdateUser(ctx context.Context, id uint64, payload dto.UpdateUserDTO) (*dto.UserDTO, error)
	DeleteUser(ctx context.Context, id, actorID uint64) error
	SetActive(ctx context.Context, id, actorID uint64, active bool) error
}

type UserService struct {
	userRepo repositories.UserRepositoryInterface
	logger   *zap.Logger
}

func NewUserService(userRepo repositories.UserRepositoryInterface, logger *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, logger: logger}
}

func (s *UserService) findEntity(ctx context.Context, id uint64) (*entities.User, error) {
	user, err := s.userRepo.FindUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("user", id)
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUsers(ctx context.Context, filter types.Filter) (*dto.UserListDTO, error) {
	users, total, err := s.userRepo.GetUsers(ctx, filter)
	if err != nil {
		return nil, err
	}
	res := &dto.UserListDTO{
		Items:      make([]dto.UserDTO, 0, len(users)),
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: types.TotalPages(total, filter.Limit),
	}
	for i := range users {
		res.Items = append(res.Items, dto.NewUserDTO(&users[i]))
	}
	return res, nil
}

func (s *UserService) FindUser(ctx context.Context, id uint64) (*dto.UserDTO, error) {
	user, err := s.findEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	res := dto.NewUserDTO(user)
	return &res, nil
}

func (s *UserService) CreateUser(ctx context.Context, payload dto.CreateUserDTO) (*dto.UserDTO, error) {
	hash, err := utils.HashPassword(payload.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.CreateUser(ctx, &entities.User{
		Name:     strings.TrimSpace(payload.Name),
		Email:    strings.ToLower(strings.TrimSpace(payload.Email)),
		Password: hash,
		Role:     entities.UserRole(payload.Role),
		IsActive: true,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.Uint64("userID", user.ID), zap.String("role", string(user.Role)))
	res := dto.NewUserDTO(user)
	return &res, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uint64, payload dto.UpdateUserDTO) (*dto.UserDTO, error) {
	user, err := s.findEntity(ctx, id)
	if err != nil {
		return nil, err
	}
	if payload.Name.Valid {
		user.Name = strings.TrimSpace(payload.Name.String)
	}
	if payload.Email.Valid {
		user.Email = strings.ToLower(strings.TrimSpace(payload.Email.String))
	}
	if payload.Role.Valid {
		role := entities.UserRole(payload.Role.String)
		if !role.Valid() {
			return nil, apperrors.NewValidationError("role", "unknown role %q", payload.Role.String)
		}
		user.Role = role
	}

	updated, err := s.userRepo.UpdateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	res := dto.NewUserDTO(updated)
	return &res, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id, actorID uint64) error {
	if id == actorID {
		return apperrors.NewConflictError("you cannot delete your own account")
	}
	if err := s.userRepo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("user", id)
		}
		return err
	}
	s.logger.Info("user deleted", zap.Uint64("userID", id), zap.Uint64("actorID", actorID))
	return nil
}

func (s *UserService) SetActive(ctx context.Context, id, actorID uint64, active bool) error {
	if id == actorID && !active {
		return apperrors.NewConflictError("you cannot deactivate your own account")
	}
	if err := s.userRepo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NewNotFoundError("user", id)
		}
		return err
	}
	s.logger.Info("user activation changed", zap.Uint64("userID", id), zap.Bool("active", active))
	return nil
}
