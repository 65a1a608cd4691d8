package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidProduct is returned by Product.Validate.
var ErrInvalidProduct = errors.New("invalid product")

// Money represents a monetary amount. Arithmetic is exact; rounding is left to callers.
type Money = decimal.Decimal

// DiscountRule unlocks Rate once a line reaches Quantity units.
type DiscountRule struct {
	Quantity int             `json:"quantity"`
	Rate     decimal.Decimal `json:"rate"`
}

// Product is a purchasable catalog entry with its quantity discount table.
type Product struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Price     Money          `json:"price"`
	Stock     int            `json:"stock"`
	Discounts []DiscountRule `json:"discounts"`
}

// Validate checks price, stock and discount table ranges.
func (p Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: %s: negative price", ErrInvalidProduct, p.ID)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: %s: negative stock", ErrInvalidProduct, p.ID)
	}
	one := decimal.NewFromInt(1)
	for _, r := range p.Discounts {
		if r.Quantity <= 0 {
			return fmt.Errorf("%w: %s: discount threshold must be positive", ErrInvalidProduct, p.ID)
		}
		if r.Rate.IsNegative() || r.Rate.GreaterThanOrEqual(one) {
			return fmt.Errorf("%w: %s: discount rate out of range", ErrInvalidProduct, p.ID)
		}
	}
	return nil
}

// Item is a single cart line.
type Item struct {
	Product  Product
	Quantity int
}

// Totals aggregates cart-wide pricing.
type Totals struct {
	TotalBeforeDiscount Money `json:"totalBeforeDiscount"`
	TotalAfterDiscount  Money `json:"totalAfterDiscount"`
	TotalDiscount       Money `json:"totalDiscount"`
}

// LineDiscount returns the quantity discount rate applied to the item.
func LineDiscount(item Item) decimal.Decimal {
	return AppliedRate(item.Product.Discounts, item.Quantity)
}

// LineSubtotalBeforeDiscount returns price * quantity.
func LineSubtotalBeforeDiscount(item Item) Money {
	if item.Quantity <= 0 {
		return decimal.Zero
	}
	return item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// LineSubtotalAfterDiscount applies the line's quantity discount to its subtotal.
func LineSubtotalAfterDiscount(item Item) Money {
	before := LineSubtotalBeforeDiscount(item)
	return before.Mul(decimal.NewFromInt(1).Sub(LineDiscount(item)))
}

// SubtotalAfterItemDiscounts sums the discounted line subtotals.
func SubtotalAfterItemDiscounts(items []Item) Money {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(LineSubtotalAfterDiscount(it))
	}
	return sum
}

// ComputeTotals derives cart totals from the lines and the optional coupon.
func ComputeTotals(items []Item, coupon *Coupon) Totals {
	before := decimal.Zero
	for _, it := range items {
		before = before.Add(LineSubtotalBeforeDiscount(it))
	}
	after := ApplyCoupon(coupon, SubtotalAfterItemDiscounts(items))
	if after.GreaterThan(before) {
		after = before
	}
	return Totals{
		TotalBeforeDiscount: before,
		TotalAfterDiscount:  after,
		TotalDiscount:       before.Sub(after),
	}
}
