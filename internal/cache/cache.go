package cache

import (
	"context"
	"errors"

	"github.com/medhelper/labcart/internal/domain"
)

// CartCache holds a user's cart together with its lines. Every invalidation
// bumps a per-user version; a reader captures the version before loading
// from the store and StoreIfCurrent refuses the write once it moved.
type CartCache interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	Version(ctx context.Context, userID int64) (int64, error)
	StoreIfCurrent(ctx context.Context, userID, version int64, cart *domain.Cart) (bool, error)
	Invalidate(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")
