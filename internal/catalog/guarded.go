package catalog

import (
	"context"
	"errors"

	"github.com/noah-isme/toko-cart/internal/pricing"
	"github.com/noah-isme/toko-cart/internal/resilience"
)

// GuardedCatalog runs every lookup on Source through a breaker and retry policy.
// ErrNotFound is an answer, not a failure, so it is neither retried nor counted.
type GuardedCatalog struct {
	Source Catalog
	Policy resilience.Policy
}

// NewGuardedCatalog wraps source with policy.
func NewGuardedCatalog(source Catalog, policy resilience.Policy) *GuardedCatalog {
	policy.Permanent = isNotFound
	return &GuardedCatalog{Source: source, Policy: policy}
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// ListProducts implements Catalog.
func (g *GuardedCatalog) ListProducts(ctx context.Context) ([]pricing.Product, error) {
	return resilience.Call(ctx, g.Policy, g.Source.ListProducts)
}

// GetProduct implements Catalog.
func (g *GuardedCatalog) GetProduct(ctx context.Context, id string) (pricing.Product, error) {
	return resilience.Call(ctx, g.Policy, func(ctx context.Context) (pricing.Product, error) {
		return g.Source.GetProduct(ctx, id)
	})
}

// ListCoupons implements Catalog.
func (g *GuardedCatalog) ListCoupons(ctx context.Context) ([]pricing.Coupon, error) {
	return resilience.Call(ctx, g.Policy, g.Source.ListCoupons)
}

// GetCoupon implements Catalog.
func (g *GuardedCatalog) GetCoupon(ctx context.Context, code string) (pricing.Coupon, error) {
	return resilience.Call(ctx, g.Policy, func(ctx context.Context) (pricing.Coupon, error) {
		return g.Source.GetCoupon(ctx, code)
	})
}
