package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"equipment-system/internal/dto"
	"equipment-system/internal/entities"
	"equipment-system/internal/repositories"
	apperrors "equipment-system/pkg/errors"
	"equipment-system/pkg/service"
	"equipment-system/pkg/utils"

	"go.uber.org/zap"
)

const (
	maxLoginAttempts    = 5
	loginAttemptsWindow = 15 * time.Minute
)

type AuthServiceInterface interface {
	Register(ctx context.Context, payload dto.RegisterDTO) (*dto.AuthResponseDTO, error)
	Login(ctx context.Context, payload dto.LoginDTO) (*dto.AuthResponseDTO, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*dto.AuthResponseDTO, error)
	Session(ctx context.Context, userID uint64) (*dto.UserDTO, error)
	Logout(ctx context.Context, claims *dto.UserClaims) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthService struct {
	userRepo   repositories.UserRepositoryInterface
	cacheRepo  repositories.CacheRepositoryInterface
	jwtService service.JWTService
	logger     *zap.Logger
}

func NewAuthService(
	userRepo repositories.UserRepositoryInterface,
	cacheRepo repositories.CacheRepositoryInterface,
	jwtService service.JWTService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		cacheRepo:  cacheRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

func revokedTokenKey(tokenID string) string {
	return "revoked_token:" + tokenID
}

func loginAttemptsKey(email string) string {
	return "login_attempts:" + email
}

func (s *AuthService) issueTokens(user *entities.User) (*dto.AuthResponseDTO, error) {
	access, refresh, err := s.jwtService.GenerateTokens(user.ID, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}
	return &dto.AuthResponseDTO{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtService.GetAccessTokenTTL().Seconds()),
		User:         dto.NewUserDTO(user),
	}, nil
}

func (s *AuthService) Register(ctx context.Context, payload dto.RegisterDTO) (*dto.AuthResponseDTO, error) {
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailTaken
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(payload.Password)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.CreateUser(ctx, &entities.User{
		Name:     strings.TrimSpace(payload.Name),
		Email:    email,
		Password: hash,
		Role:     entities.UserRoleUser,
		IsActive: true,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.Uint64("userID", user.ID))
	return s.issueTokens(user)
}

func (s *AuthService) Login(ctx context.Context, payload dto.LoginDTO) (*dto.AuthResponseDTO, error) {
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	logger := s.logger.With(zap.String("email", email))

	if raw, err := s.cacheRepo.Get(ctx, loginAttemptsKey(email)); err == nil {
		var attempts int
		if _, scanErr := fmt.Sscanf(raw, "%d", &attempts); scanErr == nil && attempts >= maxLoginAttempts {
			logger.Warn("login blocked after repeated failures")
			return nil, apperrors.ErrTooManyAttempts
		}
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.recordFailedLogin(ctx, email)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := utils.ComparePasswords(user.Password, payload.Password); err != nil {
		s.recordFailedLogin(ctx, email)
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive
	}

	if err := s.cacheRepo.Del(ctx, loginAttemptsKey(email)); err != nil {
		logger.Warn("failed to reset login attempts", zap.Error(err))
	}
	logger.Info("user logged in", zap.Uint64("userID", user.ID))
	return s.issueTokens(user)
}

func (s *AuthService) recordFailedLogin(ctx context.Context, email string) {
	key := loginAttemptsKey(email)
	count, err := s.cacheRepo.Incr(ctx, key)
	if err != nil {
		s.logger.Warn("failed to count login attempt", zap.String("email", email), zap.Error(err))
		return
	}
	if count == 1 {
		if err := s.cacheRepo.Expire(ctx, key, loginAttemptsWindow); err != nil {
			s.logger.Warn("failed to set login attempt window", zap.String("email", email), zap.Error(err))
		}
	}
}

func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*dto.AuthResponseDTO, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if !claims.IsRefreshToken {
		return nil, apperrors.ErrTokenIsNotRefresh
	}
	revoked, err := s.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, apperrors.ErrTokenRevoked
	}

	user, err := s.userRepo.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive
	}

	// refresh tokens are single use
	if claims.ExpiresAt != nil {
		s.revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
	}
	return s.issueTokens(user)
}

func (s *AuthService) Session(ctx context.Context, userID uint64) (*dto.UserDTO, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrUserInactive
	}
	res := dto.NewUserDTO(user)
	return &res, nil
}

func (s *AuthService) Logout(ctx context.Context, claims *dto.UserClaims) error {
	if claims == nil || claims.TokenID == "" {
		return apperrors.ErrUnauthorized
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl > 0 {
		if err := s.cacheRepo.Set(ctx, revokedTokenKey(claims.TokenID), "1", ttl); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}
	s.logger.Info("user logged out", zap.Uint64("userID", claims.UserID))
	return nil
}

func (s *AuthService) revoke(ctx context.Context, tokenID string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := s.cacheRepo.Set(ctx, revokedTokenKey(tokenID), "1", ttl); err != nil {
		s.logger.Warn("failed to revoke token", zap.String("tokenID", tokenID), zap.Error(err))
	}
}

func (s *AuthService) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, err := s.cacheRepo.Get(ctx, revokedTokenKey(tokenID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repositories.ErrCacheMiss) {
		return false, nil
	}
	return false, err
}
