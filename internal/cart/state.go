package cart

import (
	"time"

	"github.com/noah-isme/toko-cart/internal/pricing"
)

// State is the persisted form of a cart session. Products and coupons are stored by
// reference and resolved against the catalog when the session is loaded.
type State struct {
	Items      []StateItem `json:"items"`
	CouponCode string      `json:"couponCode,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// StateItem is a stored cart line.
type StateItem struct {
	ProductID string `json:"productId"`
	Qty       int    `json:"qty"`
}

// State captures the cart for storage.
func (c Cart) State() State {
	st := State{Items: make([]StateItem, 0, len(c.items))}
	for _, it := range c.items {
		st.Items = append(st.Items, StateItem{ProductID: it.Product.ID, Qty: it.Quantity})
	}
	if c.coupon != nil {
		st.CouponCode = c.coupon.Code
	}
	return st
}

// Restore rebuilds a cart from stored lines already resolved to products. Lines whose
// quantity is no longer positive are dropped and quantities above the current stock are
// clamped to it. adjusted reports whether any line was changed.
func Restore(items []pricing.Item, coupon *pricing.Coupon) (c Cart, adjusted bool) {
	c = New()
	for _, it := range items {
		if it.Product.ID == "" {
			adjusted = true
			continue
		}
		qty := it.Quantity
		if qty > it.Product.Stock {
			qty = it.Product.Stock
			adjusted = true
		}
		if qty <= 0 {
			adjusted = true
			continue
		}
		if i, ok := c.index[it.Product.ID]; ok {
			merged := c.items[i].Quantity + qty
			if merged > it.Product.Stock {
				merged = it.Product.Stock
			}
			c.items[i].Quantity = merged
			adjusted = true
			continue
		}
		c.index[it.Product.ID] = len(c.items)
		c.items = append(c.items, pricing.Item{Product: it.Product, Quantity: qty})
	}
	if coupon != nil {
		cp := *coupon
		c.coupon = &cp
	}
	return c, adjusted
}
