package pricing

import "github.com/shopspring/decimal"

// MaxRate returns the best rate a product can reach regardless of quantity.
func MaxRate(rules []DiscountRule) decimal.Decimal {
	best := decimal.Zero
	for _, r := range rules {
		if r.Rate.GreaterThan(best) {
			best = r.Rate
		}
	}
	return best
}

// AppliedRate returns the largest rate whose threshold the quantity reaches.
// Rules do not stack.
func AppliedRate(rules []DiscountRule, quantity int) decimal.Decimal {
	best := decimal.Zero
	for _, r := range rules {
		if quantity >= r.Quantity && r.Rate.GreaterThan(best) {
			best = r.Rate
		}
	}
	return best
}

// RemainingStock returns how many more units of product can be put in the cart.
func RemainingStock(product Product, items []Item) int {
	held := 0
	for _, it := range items {
		if it.Product.ID == product.ID {
			held = it.Quantity
			break
		}
	}
	remaining := product.Stock - held
	if remaining < 0 {
		return 0
	}
	return remaining
}
