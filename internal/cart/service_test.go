package cart

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/common"
	"github.com/noah-isme/toko-cart/internal/lock"
	"github.com/noah-isme/toko-cart/internal/pricing"
)

// swappableCatalog lets a test change the catalog under an existing session.
type swappableCatalog struct {
	catalog.Catalog
}

func testCoupons() []pricing.Coupon {
	return []pricing.Coupon{
		{Code: "PCT5", Name: "5% off", Type: pricing.CouponPercentage, Value: dec("0.05")},
		{Code: "OFF1000", Name: "1000 off", Type: pricing.CouponFixedAmount, Value: dec("1000")},
	}
}

func newStatic(t *testing.T, products []pricing.Product, coupons []pricing.Coupon) *catalog.StaticCatalog {
	t.Helper()
	c, err := catalog.NewStatic(products, coupons)
	require.NoError(t, err)
	return c
}

func newTestService(t *testing.T) (*Service, *swappableCatalog) {
	t.Helper()
	cat := &swappableCatalog{Catalog: newStatic(t, []pricing.Product{widget(), gadget()}, testCoupons())}
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := &Service{
		Store:   NewMemoryStore(time.Hour),
		Catalog: cat,
		Locker:  lock.NewLocal(),
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return now },
	}
	return svc, cat
}

func TestServiceCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Empty(t, created.Items)
	require.True(t, created.Totals.TotalAfterDiscount.IsZero())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = svc.Get(ctx, "unknown")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceCommandsProduceTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)
	id := created.ID

	view, err := svc.AddItem(ctx, id, "p1", 10)
	require.NoError(t, err)
	require.True(t, view.Totals.TotalAfterDiscount.Equal(dec("9000")))

	view, err = svc.SelectCoupon(ctx, id, "PCT5")
	require.NoError(t, err)
	require.Equal(t, "PCT5", view.Coupon.Code)
	require.True(t, view.Totals.TotalAfterDiscount.Equal(dec("8550")))
	require.True(t, view.Totals.TotalDiscount.Equal(dec("1450")))

	view, err = svc.SetQuantity(ctx, id, "p1", 25)
	require.NoError(t, err)
	require.True(t, view.QuantityClamped)
	require.Equal(t, 20, view.Items[0].Quantity)
	require.Zero(t, view.Items[0].RemainingStock)

	view, err = svc.ClearCoupon(ctx, id)
	require.NoError(t, err)
	require.Nil(t, view.Coupon)
	require.True(t, view.Totals.TotalAfterDiscount.Equal(dec("15000")))

	view, err = svc.RemoveItem(ctx, id, "p1")
	require.NoError(t, err)
	require.Empty(t, view.Items)

	reloaded, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Empty(t, reloaded.Items)
}

func TestServiceAddItemErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, created.ID, "p2", 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddItem(ctx, created.ID, " ", 1)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddItem(ctx, created.ID, "nope", 1)
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.AddItem(ctx, "missing-cart", "p2", 1)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AddItem(ctx, created.ID, "p2", 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, created.ID, "p2", 1)
	require.ErrorIs(t, err, ErrOutOfStock)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	require.Equal(t, map[string]any{"productId": "p2", "remainingStock": 0}, appErr.Details)

	view, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 3, view.Items[0].Quantity)
}

func TestServiceCouponErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.SelectCoupon(ctx, created.ID, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SelectCoupon(ctx, created.ID, "BOGUS")
	require.ErrorIs(t, err, ErrCouponNotFound)

	_, err = svc.SetQuantity(ctx, created.ID, "p1", 2)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestServiceResolvesAgainstCurrentCatalog(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)
	id := created.ID

	_, err = svc.AddItem(ctx, id, "p1", 15)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, id, "p2", 2)
	require.NoError(t, err)
	_, err = svc.SelectCoupon(ctx, id, "PCT5")
	require.NoError(t, err)

	restocked := widget()
	restocked.Stock = 12
	restocked.Price = dec("1100")
	cat.Catalog = newStatic(t, []pricing.Product{restocked}, testCoupons()[1:])

	view, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, view.Adjusted)
	require.Len(t, view.Items, 1)
	require.Equal(t, 12, view.Items[0].Quantity)
	require.True(t, view.Items[0].UnitPrice.Equal(dec("1100")))
	require.Nil(t, view.Coupon, "coupon no longer offered must be cleared")
}

func TestServiceGetPersistsCatalogAdjustments(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)
	id := created.ID

	_, err = svc.AddItem(ctx, id, "p1", 10)
	require.NoError(t, err)
	view, err := svc.SelectCoupon(ctx, id, "PCT5")
	require.NoError(t, err)
	require.True(t, view.Totals.TotalAfterDiscount.Equal(dec("8550")))

	original := cat.Catalog
	short := widget()
	short.Stock = 5
	cat.Catalog = newStatic(t, []pricing.Product{short, gadget()}, testCoupons()[1:])

	view, err = svc.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, view.Adjusted)
	require.Nil(t, view.Coupon)
	require.Equal(t, 5, view.Items[0].Quantity)

	st, err := svc.Store.Load(ctx, id)
	require.NoError(t, err)
	require.Empty(t, st.CouponCode)
	require.Equal(t, []StateItem{{ProductID: "p1", Qty: 5}}, st.Items)

	cat.Catalog = original
	view, err = svc.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, view.Adjusted)
	require.Nil(t, view.Coupon, "cleared coupon must not come back with the catalog")
	require.Equal(t, 5, view.Items[0].Quantity)
	require.True(t, view.Totals.TotalAfterDiscount.Equal(dec("5000")))
}

func TestServiceProductsPersistsCatalogAdjustments(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.SelectCoupon(ctx, created.ID, "PCT5")
	require.NoError(t, err)

	cat.Catalog = newStatic(t, []pricing.Product{widget(), gadget()}, testCoupons()[1:])
	_, err = svc.Products(ctx, created.ID)
	require.NoError(t, err)

	st, err := svc.Store.Load(ctx, created.ID)
	require.NoError(t, err)
	require.Empty(t, st.CouponCode)
}

func TestServiceProducts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, created.ID, "p2", 3)
	require.NoError(t, err)

	products, err := svc.Products(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "p1", products[0].ID)
	require.Equal(t, 20, *products[0].RemainingStock)
	require.True(t, products[0].MaxDiscountRate.Equal(dec("0.25")))
	require.Equal(t, 0, *products[1].RemainingStock)

	_, err = svc.Products(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	require.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceConcurrentAddsRespectStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx)
	require.NoError(t, err)

	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := svc.AddItem(ctx, created.ID, "p2", 1)
			errs <- err
		}()
	}
	var ok, rejected int
	for i := 0; i < 5; i++ {
		if err := <-errs; err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, ErrOutOfStock)
			rejected++
		}
	}
	require.Equal(t, 3, ok)
	require.Equal(t, 2, rejected)

	view, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 3, view.Items[0].Quantity)
}

func TestServiceNotConfigured(t *testing.T) {
	var svc *Service
	_, err := svc.Create(context.Background())
	require.Error(t, err)
}
