package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"storefront/internal/dto"
)

var ErrCacheMiss = errors.New("cache miss")

// PreferenceCache remembers checkout sessions per order and amount, so a
// repeated checkout of an unchanged order reuses the gateway preference.
type PreferenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPreferenceCache(client *redis.Client, ttl time.Duration) *PreferenceCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &PreferenceCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *PreferenceCache) Get(ctx context.Context, orderID uint, total decimal.Decimal) (*dto.CheckoutSession, error) {
	data, err := c.client.Get(ctx, cacheKey(orderID, total)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var session dto.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal checkout session failed: %w", err)
	}

	return &session, nil
}

func (c *PreferenceCache) Set(ctx context.Context, orderID uint, total decimal.Decimal, session *dto.CheckoutSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal checkout session failed: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(orderID, total), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func cacheKey(orderID uint, total decimal.Decimal) string {
	return fmt.Sprintf("checkout:preference:%d:%s", orderID, total.StringFixed(2))
}
