package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/pricing"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func widget() pricing.Product {
	return pricing.Product{
		ID:    "p1",
		Name:  "Widget",
		Price: dec("1000"),
		Stock: 20,
		Discounts: []pricing.DiscountRule{
			{Quantity: 10, Rate: dec("0.1")},
			{Quantity: 20, Rate: dec("0.25")},
		},
	}
}

func gadget() pricing.Product {
	return pricing.Product{ID: "p2", Name: "Gadget", Price: dec("500"), Stock: 3}
}

func TestAddItemMergesLines(t *testing.T) {
	c, err := New().AddItem(widget(), 4)
	require.NoError(t, err)
	c, err = c.AddItem(gadget(), 1)
	require.NoError(t, err)
	c, err = c.AddItem(widget(), 6)
	require.NoError(t, err)

	require.Equal(t, 2, c.Len())
	items := c.Items()
	require.Equal(t, "p1", items[0].Product.ID)
	require.Equal(t, 10, items[0].Quantity)
	require.Equal(t, "p2", items[1].Product.ID)
	require.Equal(t, 10, c.RemainingStock(widget()))
}

func TestAddItemRejectsInvalidAndExcess(t *testing.T) {
	base, err := New().AddItem(gadget(), 2)
	require.NoError(t, err)

	_, err = base.AddItem(gadget(), 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = base.AddItem(pricing.Product{Stock: 5}, 1)
	require.ErrorIs(t, err, ErrInvalidInput)

	same, err := base.AddItem(gadget(), 2)
	require.ErrorIs(t, err, ErrOutOfStock)
	require.Equal(t, base.Items(), same.Items())

	full, err := base.AddItem(gadget(), 1)
	require.NoError(t, err)
	require.Zero(t, full.RemainingStock(gadget()))
	_, err = full.AddItem(gadget(), 1)
	require.ErrorIs(t, err, ErrOutOfStock)
}

func TestCommandsDoNotMutateReceiver(t *testing.T) {
	base, err := New().AddItem(widget(), 2)
	require.NoError(t, err)

	_, err = base.AddItem(widget(), 3)
	require.NoError(t, err)
	_, _, err = base.SetQuantity("p1", 7)
	require.NoError(t, err)
	_ = base.RemoveItem("p1")
	_ = base.SelectCoupon(pricing.Coupon{Code: "C", Type: pricing.CouponFixedAmount, Value: dec("100")})

	item, ok := base.Item("p1")
	require.True(t, ok)
	require.Equal(t, 2, item.Quantity)
	require.Nil(t, base.Coupon())
}

func TestRemoveItemPreservesOrder(t *testing.T) {
	third := pricing.Product{ID: "p3", Name: "Thing", Price: dec("10"), Stock: 5}
	c, _ := New().AddItem(widget(), 1)
	c, _ = c.AddItem(gadget(), 1)
	c, _ = c.AddItem(third, 1)

	c = c.RemoveItem("p2")
	ids := []string{}
	for _, it := range c.Items() {
		ids = append(ids, it.Product.ID)
	}
	require.Equal(t, []string{"p1", "p3"}, ids)
	_, ok := c.Item("p3")
	require.True(t, ok)

	require.Equal(t, 2, c.RemoveItem("missing").Len())
}

func TestSetQuantity(t *testing.T) {
	c, _ := New().AddItem(widget(), 5)

	next, clamped, err := c.SetQuantity("p1", 12)
	require.NoError(t, err)
	require.False(t, clamped)
	item, _ := next.Item("p1")
	require.Equal(t, 12, item.Quantity)

	next, clamped, err = c.SetQuantity("p1", 50)
	require.NoError(t, err)
	require.True(t, clamped)
	item, _ = next.Item("p1")
	require.Equal(t, 20, item.Quantity)

	next, _, err = c.SetQuantity("p1", 0)
	require.NoError(t, err)
	require.Zero(t, next.Len())

	next, _, err = c.SetQuantity("p1", -3)
	require.NoError(t, err)
	require.Zero(t, next.Len())

	_, _, err = c.SetQuantity("p2", 1)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestCouponSelection(t *testing.T) {
	c, _ := New().AddItem(widget(), 10)
	pct := pricing.Coupon{Code: "PCT5", Type: pricing.CouponPercentage, Value: dec("0.05")}
	fixed := pricing.Coupon{Code: "OFF1000", Type: pricing.CouponFixedAmount, Value: dec("1000")}

	c = c.SelectCoupon(pct)
	require.Equal(t, "PCT5", c.Coupon().Code)
	require.True(t, c.Totals().TotalAfterDiscount.Equal(dec("8550")))

	c = c.SelectCoupon(fixed)
	require.Equal(t, "OFF1000", c.Coupon().Code)
	require.True(t, c.Totals().TotalAfterDiscount.Equal(dec("8000")))

	c = c.ClearCoupon()
	require.Nil(t, c.Coupon())
	require.True(t, c.Totals().TotalAfterDiscount.Equal(dec("9000")))
}

func TestStateRoundTripAndRestore(t *testing.T) {
	coupon := pricing.Coupon{Code: "PCT5", Type: pricing.CouponPercentage, Value: dec("0.05")}
	c, _ := New().AddItem(widget(), 4)
	c, _ = c.AddItem(gadget(), 2)
	c = c.SelectCoupon(coupon)

	st := c.State()
	require.Equal(t, []StateItem{{ProductID: "p1", Qty: 4}, {ProductID: "p2", Qty: 2}}, st.Items)
	require.Equal(t, "PCT5", st.CouponCode)

	restored, adjusted := Restore([]pricing.Item{
		{Product: widget(), Quantity: 4},
		{Product: gadget(), Quantity: 2},
	}, &coupon)
	require.False(t, adjusted)
	require.Equal(t, c.Items(), restored.Items())
	require.Equal(t, "PCT5", restored.Coupon().Code)
}

func TestRestoreAdjustsToStock(t *testing.T) {
	shrunk := gadget()
	shrunk.Stock = 1
	gone := widget()
	gone.Stock = 0

	c, adjusted := Restore([]pricing.Item{
		{Product: shrunk, Quantity: 3},
		{Product: gone, Quantity: 2},
		{Product: pricing.Product{}, Quantity: 1},
	}, nil)
	require.True(t, adjusted)
	require.Equal(t, 1, c.Len())
	item, ok := c.Item("p2")
	require.True(t, ok)
	require.Equal(t, 1, item.Quantity)
}

func TestRestoreMergesDuplicates(t *testing.T) {
	c, adjusted := Restore([]pricing.Item{
		{Product: gadget(), Quantity: 2},
		{Product: gadget(), Quantity: 2},
	}, nil)
	require.True(t, adjusted)
	item, _ := c.Item("p2")
	require.Equal(t, 3, item.Quantity)
}

func TestNewView(t *testing.T) {
	c, _ := New().AddItem(widget(), 10)
	c = c.SelectCoupon(pricing.Coupon{Code: "PCT5", Type: pricing.CouponPercentage, Value: dec("0.05")})

	v := NewView("cart-1", c)
	require.Equal(t, "cart-1", v.ID)
	require.Len(t, v.Items, 1)
	line := v.Items[0]
	require.Equal(t, 10, line.Quantity)
	require.Equal(t, 10, line.RemainingStock)
	require.True(t, line.DiscountRate.Equal(dec("0.1")))
	require.True(t, line.SubtotalBeforeDiscount.Equal(dec("10000")))
	require.True(t, line.SubtotalAfterDiscount.Equal(dec("9000")))
	require.True(t, v.Totals.TotalBeforeDiscount.Equal(dec("10000")))
	require.True(t, v.Totals.TotalAfterDiscount.Equal(dec("8550")))
	require.True(t, v.Totals.TotalDiscount.Equal(dec("1450")))
}
