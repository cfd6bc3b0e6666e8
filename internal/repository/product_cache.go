package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// ProductCache is a read-through cache in front of ProductRepository.FindByID.
// The database stays the source of truth for stock.
type ProductCache interface {
	// Get returns nil without error on a miss.
	Get(ctx context.Context, productID string) (*model.Product, error)
	Set(ctx context.Context, product *model.Product) error
	Invalidate(ctx context.Context, productIDs ...string) error
}

type redisProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProductCache(rdb *redis.Client, ttl time.Duration) ProductCache {
	return &redisProductCache{
		rdb: rdb,
		ttl: ttl,
	}
}

func productCacheKey(productID string) string {
	return fmt.Sprintf("product:%s", productID)
}

func (c *redisProductCache) Get(ctx context.Context, productID string) (*model.Product, error) {
	raw, err := c.rdb.Get(ctx, productCacheKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached product: %w", err)
	}

	var product model.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, fmt.Errorf("decode cached product: %w", err)
	}

	return &product, nil
}

func (c *redisProductCache) Set(ctx context.Context, product *model.Product) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}

	return c.rdb.Set(ctx, productCacheKey(product.ID), raw, c.ttl).Err()
}

func (c *redisProductCache) Invalidate(ctx context.Context, productIDs ...string) error {
	if len(productIDs) == 0 {
		return nil
	}

	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = productCacheKey(id)
	}

	return c.rdb.Del(ctx, keys...).Err()
}

type nopProductCache struct{}

// NewNopProductCache is used when no redis address is configured.
func NewNopProductCache() ProductCache {
	return nopProductCache{}
}

func (nopProductCache) Get(context.Context, string) (*model.Product, error) { return nil, nil }
func (nopProductCache) Set(context.Context, *model.Product) error          { return nil }
func (nopProductCache) Invalidate(context.Context, ...string) error        { return nil }

var (
	_ ProductCache = (*redisProductCache)(nil)
	_ ProductCache = nopProductCache{}
)
