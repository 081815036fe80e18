package middleware

import (
	"context"
	"strings"

	"equipment-system/internal/dto"
	apperrors "equipment-system/pkg/errors"
	"equipment-system/pkg/service"
	"equipment-system/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TokenRevocationChecker reports whether a token id was revoked by logout.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthMiddleware struct {
	jwtService service.JWTService
	revocation TokenRevocationChecker
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtSvc service.JWTService, revocation TokenRevocationChecker, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtSvc,
		revocation: revocation,
		logger:     logger,
	}
}

// Auth validates the bearer token and puts the caller's claims on the request context.
func (m *AuthMiddleware) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return utils.ErrorResponse(c, apperrors.ErrEmptyAuthHeader, m.logger)
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return utils.ErrorResponse(c, apperrors.ErrInvalidAuthHeader, m.logger)
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("AuthMiddleware: token rejected", zap.Error(err))
			return utils.ErrorResponse(c, err, m.logger)
		}
		if claims.IsRefreshToken {
			return utils.ErrorResponse(c, apperrors.ErrTokenIsNotAccess, m.logger)
		}

		ctx := c.Request().Context()
		if m.revocation != nil {
			revoked, err := m.revocation.IsTokenRevoked(ctx, claims.ID)
			if err != nil {
				m.logger.Error("AuthMiddleware: revocation lookup failed", zap.Error(err))
				return utils.ErrorResponse(c, err, m.logger)
			}
			if revoked {
				return utils.ErrorResponse(c, apperrors.ErrTokenRevoked, m.logger)
			}
		}

		userClaims := &dto.UserClaims{
			UserID:  claims.UserID,
			Role:    claims.Role,
			TokenID: claims.ID,
		}
		if claims.ExpiresAt != nil {
			userClaims.ExpiresAt = claims.ExpiresAt.Time
		}
		c.SetRequest(c.Request().WithContext(utils.WithClaims(ctx, userClaims)))

		return next(c)
	}
}

// RequireRole must run after Auth.
func (m *AuthMiddleware) RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := utils.GetClaimsFromContext(c.Request().Context())
			if err != nil {
				return utils.ErrorResponse(c, err, m.logger)
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(c)
				}
			}
			m.logger.Warn("AuthMiddleware: role check failed",
				zap.Uint64("userID", claims.UserID),
				zap.String("role", claims.Role),
				zap.Strings("required", roles),
			)
			return utils.ErrorResponse(c, &apperrors.ForbiddenError{Message: "access denied: insufficient role"}, m.logger)
		}
	}
}
