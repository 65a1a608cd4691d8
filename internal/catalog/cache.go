package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/pricing"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

const (
	productsKey      = "catalog:products"
	productKeyPrefix = "catalog:product:"
	couponsKey       = "catalog:coupons"
	couponKeyPrefix  = "catalog:coupon:"
)

// CachedCatalog serves reads from Redis and falls back to the wrapped Catalog on a miss.
// Cache failures are logged and never fail the read. Stock figures may lag the source by
// up to the cache TTL.
type CachedCatalog struct {
	Source Catalog
	Cache  *Cache
	Logger zerolog.Logger
}

// ListProducts implements Catalog.
func (c CachedCatalog) ListProducts(ctx context.Context) ([]pricing.Product, error) {
	var cached []pricing.Product
	if c.lookup(ctx, productsKey, &cached) {
		return cached, nil
	}
	products, err := c.Source.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, productsKey, products)
	return products, nil
}

// GetProduct implements Catalog.
func (c CachedCatalog) GetProduct(ctx context.Context, id string) (pricing.Product, error) {
	key := productKeyPrefix + id
	var cached pricing.Product
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}
	product, err := c.Source.GetProduct(ctx, id)
	if err != nil {
		return pricing.Product{}, err
	}
	c.store(ctx, key, product)
	return product, nil
}

// ListCoupons implements Catalog.
func (c CachedCatalog) ListCoupons(ctx context.Context) ([]pricing.Coupon, error) {
	var cached []pricing.Coupon
	if c.lookup(ctx, couponsKey, &cached) {
		return cached, nil
	}
	coupons, err := c.Source.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, couponsKey, coupons)
	return coupons, nil
}

// GetCoupon implements Catalog.
func (c CachedCatalog) GetCoupon(ctx context.Context, code string) (pricing.Coupon, error) {
	key := couponKeyPrefix + code
	var cached pricing.Coupon
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}
	coupon, err := c.Source.GetCoupon(ctx, code)
	if err != nil {
		return pricing.Coupon{}, err
	}
	c.store(ctx, key, coupon)
	return coupon, nil
}

func (c CachedCatalog) lookup(ctx context.Context, key string, dst any) bool {
	ok, err := c.Cache.GetJSON(ctx, key, dst)
	if err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache read")
		return false
	}
	return ok
}

func (c CachedCatalog) store(ctx context.Context, key string, v any) {
	if err := c.Cache.SetJSON(ctx, key, v); err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("catalog cache write")
	}
}
