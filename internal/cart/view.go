package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-cart/internal/pricing"
)

// LineView is the priced representation of a cart line.
type LineView struct {
	ProductID              string          `json:"productId"`
	Name                   string          `json:"name"`
	UnitPrice              pricing.Money   `json:"unitPrice"`
	Quantity               int             `json:"quantity"`
	Stock                  int             `json:"stock"`
	RemainingStock         int             `json:"remainingStock"`
	DiscountRate           decimal.Decimal `json:"discountRate"`
	SubtotalBeforeDiscount pricing.Money   `json:"subtotalBeforeDiscount"`
	SubtotalAfterDiscount  pricing.Money   `json:"subtotalAfterDiscount"`
}

// View is the response payload for a cart session.
type View struct {
	ID              string          `json:"id"`
	Items           []LineView      `json:"items"`
	Coupon          *pricing.Coupon `json:"coupon"`
	Totals          pricing.Totals  `json:"totals"`
	QuantityClamped bool            `json:"quantityClamped,omitempty"`
	Adjusted        bool            `json:"adjusted,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewView prices every line of c and computes the cart totals.
func NewView(id string, c Cart) View {
	items := c.Items()
	v := View{
		ID:     id,
		Items:  make([]LineView, 0, len(items)),
		Coupon: c.Coupon(),
		Totals: c.Totals(),
	}
	for _, it := range items {
		v.Items = append(v.Items, LineView{
			ProductID:              it.Product.ID,
			Name:                   it.Product.Name,
			UnitPrice:              it.Product.Price,
			Quantity:               it.Quantity,
			Stock:                  it.Product.Stock,
			RemainingStock:         c.RemainingStock(it.Product),
			DiscountRate:           pricing.LineDiscount(it),
			SubtotalBeforeDiscount: pricing.LineSubtotalBeforeDiscount(it),
			SubtotalAfterDiscount:  pricing.LineSubtotalAfterDiscount(it),
		})
	}
	return v
}
