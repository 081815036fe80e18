package repositories

import (
	"context"
	"time"
)

// CacheRepositoryInterface is the key/value surface used for the equipment
// read-through cache and the token blacklist. Get returns ErrCacheMiss when
// the key is absent. Incr and Expire back the login attempt counter.
type CacheRepositoryInterface interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key ...string) error
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
}
