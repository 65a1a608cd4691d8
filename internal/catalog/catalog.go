package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/toko-cart/internal/pricing"
)

// ErrNotFound is returned when a product or coupon does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Catalog provides the products and coupons carts are priced against.
type Catalog interface {
	ListProducts(ctx context.Context) ([]pricing.Product, error)
	GetProduct(ctx context.Context, id string) (pricing.Product, error)
	ListCoupons(ctx context.Context) ([]pricing.Coupon, error)
	GetCoupon(ctx context.Context, code string) (pricing.Coupon, error)
}

// Validate checks every entry and rejects duplicate product ids or coupon codes.
func Validate(products []pricing.Product, coupons []pricing.Coupon) error {
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate id %s", pricing.ErrInvalidProduct, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	codes := make(map[string]struct{}, len(coupons))
	for _, c := range coupons {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("coupon %q: %w", c.Code, err)
		}
		if _, dup := codes[c.Code]; dup {
			return fmt.Errorf("coupon %q: duplicate code: %w", c.Code, pricing.ErrInvalidCoupon)
		}
		codes[c.Code] = struct{}{}
	}
	return nil
}
