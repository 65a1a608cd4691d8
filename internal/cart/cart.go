package cart

import (
	"errors"
	"fmt"

	"github.com/noah-isme/toko-cart/internal/pricing"
)

var (
	// ErrNotFound indicates the requested cart session could not be located.
	ErrNotFound = errors.New("cart not found")
	// ErrInvalidInput is returned when the provided payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
	// ErrItemNotFound is returned when a command targets a product that is not in the cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrOutOfStock is returned when an add would take a line above the product's stock.
	ErrOutOfStock = errors.New("insufficient stock")
	// ErrCouponNotFound is returned when selecting a coupon code the catalog does not know.
	ErrCouponNotFound = errors.New("coupon not found")
)

// Cart is an immutable snapshot of cart lines and the selected coupon. Every command
// returns a new Cart and leaves the receiver untouched.
type Cart struct {
	items  []pricing.Item
	index  map[string]int
	coupon *pricing.Coupon
}

// New returns an empty cart.
func New() Cart {
	return Cart{index: map[string]int{}}
}

func (c Cart) clone() Cart {
	next := Cart{
		items: make([]pricing.Item, len(c.items)),
		index: make(map[string]int, len(c.items)),
	}
	copy(next.items, c.items)
	for i, it := range next.items {
		next.index[it.Product.ID] = i
	}
	if c.coupon != nil {
		cp := *c.coupon
		next.coupon = &cp
	}
	return next
}

// Items returns the cart lines in insertion order.
func (c Cart) Items() []pricing.Item {
	out := make([]pricing.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Item returns the line for productID.
func (c Cart) Item(productID string) (pricing.Item, bool) {
	i, ok := c.index[productID]
	if !ok {
		return pricing.Item{}, false
	}
	return c.items[i], true
}

// Len reports the number of distinct products in the cart.
func (c Cart) Len() int { return len(c.items) }

// Coupon returns the selected coupon or nil.
func (c Cart) Coupon() *pricing.Coupon {
	if c.coupon == nil {
		return nil
	}
	cp := *c.coupon
	return &cp
}

// RemainingStock reports how many more units of product may be added.
func (c Cart) RemainingStock(product pricing.Product) int {
	return pricing.RemainingStock(product, c.items)
}

// Totals computes the cart totals from the current lines and coupon.
func (c Cart) Totals() pricing.Totals {
	return pricing.ComputeTotals(c.items, c.coupon)
}

// AddItem puts qty units of product in the cart, merging with an existing line.
// Adds beyond the remaining stock are rejected and the cart is returned unchanged.
func (c Cart) AddItem(product pricing.Product, qty int) (Cart, error) {
	if qty <= 0 {
		return c, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	if product.ID == "" {
		return c, fmt.Errorf("product id required: %w", ErrInvalidInput)
	}
	if remaining := c.RemainingStock(product); qty > remaining {
		return c, fmt.Errorf("product %s has %d remaining: %w", product.ID, remaining, ErrOutOfStock)
	}
	next := c.clone()
	if i, ok := next.index[product.ID]; ok {
		next.items[i] = pricing.Item{Product: product, Quantity: next.items[i].Quantity + qty}
		return next, nil
	}
	next.index[product.ID] = len(next.items)
	next.items = append(next.items, pricing.Item{Product: product, Quantity: qty})
	return next, nil
}

// RemoveItem drops the line for productID. Removing an absent product is a no-op.
func (c Cart) RemoveItem(productID string) Cart {
	if _, ok := c.index[productID]; !ok {
		return c
	}
	next := Cart{
		items:  make([]pricing.Item, 0, len(c.items)-1),
		index:  make(map[string]int, len(c.items)-1),
		coupon: c.Coupon(),
	}
	for _, it := range c.items {
		if it.Product.ID == productID {
			continue
		}
		next.index[it.Product.ID] = len(next.items)
		next.items = append(next.items, it)
	}
	return next
}

// SetQuantity replaces a line's quantity. Zero or negative quantities remove the line;
// quantities above the product's stock are clamped to it, in which case clamped is true.
func (c Cart) SetQuantity(productID string, qty int) (next Cart, clamped bool, err error) {
	i, ok := c.index[productID]
	if !ok {
		return c, false, ErrItemNotFound
	}
	if qty <= 0 {
		return c.RemoveItem(productID), false, nil
	}
	product := c.items[i].Product
	if qty > product.Stock {
		qty = product.Stock
		clamped = true
	}
	if qty <= 0 {
		return c.RemoveItem(productID), clamped, nil
	}
	next = c.clone()
	next.items[i].Quantity = qty
	return next, clamped, nil
}

// SelectCoupon makes coupon the active coupon, replacing any previous one.
func (c Cart) SelectCoupon(coupon pricing.Coupon) Cart {
	next := c.clone()
	next.coupon = &coupon
	return next
}

// ClearCoupon removes the active coupon.
func (c Cart) ClearCoupon() Cart {
	next := c.clone()
	next.coupon = nil
	return next
}
