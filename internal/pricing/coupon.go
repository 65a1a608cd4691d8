package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// CouponType distinguishes how a coupon value is interpreted.
type CouponType string

const (
	// CouponPercentage discounts a fraction of the subtotal.
	CouponPercentage CouponType = "percentage"
	// CouponFixedAmount subtracts a fixed amount from the subtotal.
	CouponFixedAmount CouponType = "fixed_amount"
)

// ErrInvalidCoupon is returned by ParseCouponType and Coupon.Validate.
var ErrInvalidCoupon = errors.New("invalid coupon")

// Coupon is an order-wide discount. Only one is active per cart.
type Coupon struct {
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Type  CouponType      `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// ParseCouponType accepts the canonical names plus the short aliases used by catalog files.
func ParseCouponType(value string) (CouponType, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "percentage", "percent":
		return CouponPercentage, nil
	case "fixed_amount", "amount", "fixed":
		return CouponFixedAmount, nil
	default:
		return "", ErrInvalidCoupon
	}
}

// Validate checks the value range for the coupon type.
func (c Coupon) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return ErrInvalidCoupon
	}
	switch c.Type {
	case CouponPercentage:
		if c.Value.IsNegative() || c.Value.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return ErrInvalidCoupon
		}
	case CouponFixedAmount:
		if c.Value.IsNegative() {
			return ErrInvalidCoupon
		}
	default:
		return ErrInvalidCoupon
	}
	return nil
}

// ApplyCoupon returns the subtotal after the coupon. A nil coupon leaves it unchanged
// and fixed amounts never take the result below zero.
func ApplyCoupon(coupon *Coupon, subtotal Money) Money {
	if coupon == nil {
		return subtotal
	}
	switch coupon.Type {
	case CouponPercentage:
		return subtotal.Mul(decimal.NewFromInt(1).Sub(coupon.Value))
	case CouponFixedAmount:
		adjusted := subtotal.Sub(coupon.Value)
		if adjusted.IsNegative() {
			return decimal.Zero
		}
		return adjusted
	default:
		return subtotal
	}
}
