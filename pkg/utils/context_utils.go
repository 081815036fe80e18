package utils

import (
	"context"

	"equipment-system/internal/dto"
	"equipment-system/pkg/contextkeys"
	apperrors "equipment-system/pkg/errors"
)

func GetClaimsFromContext(ctx context.Context) (*dto.UserClaims, error) {
	claims, ok := ctx.Value(contextkeys.ClaimsKey).(*dto.UserClaims)
	if !ok || claims == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return claims, nil
}

func GetUserIDFromContext(ctx context.Context) (uint64, error) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(uint64)
	if !ok || userID == 0 {
		return 0, apperrors.ErrUserIDNotFoundInContext
	}
	return userID, nil
}

func WithClaims(ctx context.Context, claims *dto.UserClaims) context.Context {
	ctx = context.WithValue(ctx, contextkeys.ClaimsKey, claims)
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, claims.UserID)
	return context.WithValue(ctx, contextkeys.UserRoleKey, claims.Role)
}
