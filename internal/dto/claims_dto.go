package dto

import "time"

// UserClaims is the authenticated caller placed on the request context by the auth middleware.
type UserClaims struct {
	UserID    uint64
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

func (c *UserClaims) IsAdmin() bool {
	return c != nil && c.Role == "admin"
}
