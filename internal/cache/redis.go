package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medhelper/labcart/internal/domain"
)

// versionTTL outlives any cart entry so a version never resets under a
// cached cart.
const versionTTL = 24 * time.Hour

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 15 * time.Minute
	}
	return &RedisCache{client: client, baseTTL: baseTTL}
}

func cartKey(userID int64) string    { return fmt.Sprintf("cart:%d", userID) }
func versionKey(userID int64) string { return fmt.Sprintf("cart:%d:v", userID) }

func (r *RedisCache) Get(ctx context.Context, userID int64) (*domain.Cart, error) {
	raw, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("read cached cart %d: %w", userID, err)
	}

	cart := new(domain.Cart)
	if err := json.Unmarshal(raw, cart); err != nil {
		return nil, fmt.Errorf("decode cached cart %d: %w", userID, err)
	}
	return cart, nil
}

// Version is zero for a user that was never invalidated.
func (r *RedisCache) Version(ctx context.Context, userID int64) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cart version %d: %w", userID, err)
	}
	return v, nil
}

// StoreIfCurrent writes the cart only while the version still equals
// version. It reports false when an invalidation won the race.
func (r *RedisCache) StoreIfCurrent(ctx context.Context, userID, version int64, cart *domain.Cart) (bool, error) {
	payload, err := json.Marshal(cart)
	if err != nil {
		return false, fmt.Errorf("encode cart %d: %w", userID, err)
	}
	// jitter so carts loaded together do not expire together
	ttl := r.baseTTL + time.Duration(rand.IntN(5))*time.Minute

	stale := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, versionKey(userID)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			stale = true
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, cartKey(userID), payload, ttl)
			return nil
		})
		return err
	}, versionKey(userID))
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store cart %d: %w", userID, err)
	}
	return !stale, nil
}

// Invalidate bumps the version and drops the cached cart in one MULTI.
func (r *RedisCache) Invalidate(ctx context.Context, userID int64) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, versionKey(userID))
		p.Expire(ctx, versionKey(userID), versionTTL)
		p.Del(ctx, cartKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate cart %d: %w", userID, err)
	}
	return nil
}
