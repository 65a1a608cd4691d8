package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/toko-cart/internal/pricing"
)

// StaticCatalog serves a fixed set of products and coupons from memory.
type StaticCatalog struct {
	products []pricing.Product
	byID     map[string]int
	coupons  []pricing.Coupon
	byCode   map[string]int
}

// NewStatic validates the entries and builds a StaticCatalog preserving their order.
func NewStatic(products []pricing.Product, coupons []pricing.Coupon) (*StaticCatalog, error) {
	if err := Validate(products, coupons); err != nil {
		return nil, err
	}
	c := &StaticCatalog{
		products: append([]pricing.Product(nil), products...),
		byID:     make(map[string]int, len(products)),
		coupons:  append([]pricing.Coupon(nil), coupons...),
		byCode:   make(map[string]int, len(coupons)),
	}
	for i, p := range c.products {
		c.byID[p.ID] = i
	}
	for i, cp := range c.coupons {
		c.byCode[cp.Code] = i
	}
	return c, nil
}

// ListProducts implements Catalog.
func (c *StaticCatalog) ListProducts(context.Context) ([]pricing.Product, error) {
	return append([]pricing.Product(nil), c.products...), nil
}

// GetProduct implements Catalog.
func (c *StaticCatalog) GetProduct(_ context.Context, id string) (pricing.Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return pricing.Product{}, ErrNotFound
	}
	return c.products[i], nil
}

// ListCoupons implements Catalog.
func (c *StaticCatalog) ListCoupons(context.Context) ([]pricing.Coupon, error) {
	return append([]pricing.Coupon(nil), c.coupons...), nil
}

// GetCoupon implements Catalog.
func (c *StaticCatalog) GetCoupon(_ context.Context, code string) (pricing.Coupon, error) {
	i, ok := c.byCode[code]
	if !ok {
		return pricing.Coupon{}, ErrNotFound
	}
	return c.coupons[i], nil
}

// File is the YAML layout of a catalog file.
type File struct {
	Products []FileProduct `yaml:"products"`
	Coupons  []FileCoupon  `yaml:"coupons"`
}

// FileProduct is a product entry in a catalog file.
type FileProduct struct {
	ID        string          `yaml:"id"`
	Name      string          `yaml:"name"`
	Price     decimal.Decimal `yaml:"price"`
	Stock     int             `yaml:"stock"`
	Discounts []FileDiscount  `yaml:"discounts"`
}

// FileDiscount is a quantity discount rule in a catalog file.
type FileDiscount struct {
	Quantity int             `yaml:"quantity"`
	Rate     decimal.Decimal `yaml:"rate"`
}

// FileCoupon is a coupon entry in a catalog file.
type FileCoupon struct {
	Code          string          `yaml:"code"`
	Name          string          `yaml:"name"`
	DiscountType  string          `yaml:"discountType"`
	DiscountValue decimal.Decimal `yaml:"discountValue"`
}

// ParseFile decodes YAML catalog data into pricing entries.
func ParseFile(data []byte) ([]pricing.Product, []pricing.Coupon, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("decode catalog: %w", err)
	}
	products := make([]pricing.Product, 0, len(f.Products))
	for _, fp := range f.Products {
		p := pricing.Product{
			ID:        fp.ID,
			Name:      fp.Name,
			Price:     fp.Price,
			Stock:     fp.Stock,
			Discounts: make([]pricing.DiscountRule, 0, len(fp.Discounts)),
		}
		for _, d := range fp.Discounts {
			p.Discounts = append(p.Discounts, pricing.DiscountRule{Quantity: d.Quantity, Rate: d.Rate})
		}
		products = append(products, p)
	}
	coupons := make([]pricing.Coupon, 0, len(f.Coupons))
	for _, fc := range f.Coupons {
		typ, err := pricing.ParseCouponType(fc.DiscountType)
		if err != nil {
			return nil, nil, fmt.Errorf("coupon %q: unknown discount type %q: %w", fc.Code, fc.DiscountType, err)
		}
		coupons = append(coupons, pricing.Coupon{
			Code:  fc.Code,
			Name:  fc.Name,
			Type:  typ,
			Value: fc.DiscountValue,
		})
	}
	return products, coupons, nil
}

// LoadFile reads a YAML catalog file into a StaticCatalog.
func LoadFile(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	products, coupons, err := ParseFile(data)
	if err != nil {
		return nil, err
	}
	return NewStatic(products, coupons)
}
