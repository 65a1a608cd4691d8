package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/common"
	"github.com/noah-isme/toko-cart/internal/lock"
	"github.com/noah-isme/toko-cart/internal/obs"
	"github.com/noah-isme/toko-cart/internal/pricing"
)

// ErrProductNotFound is returned when adding a product the catalog does not know.
var ErrProductNotFound = errors.New("product not found")

// Service encapsulates cart session operations.
type Service struct {
	Store   Store
	Catalog catalog.Catalog
	Locker  lock.Locker
	Logger  zerolog.Logger
	Now     func() time.Time
	LockTTL time.Duration
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 5 * time.Second
	}
	return s.LockTTL
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil || s.Catalog == nil {
		return errors.New("cart service not configured")
	}
	return nil
}

var processLocker = lock.NewLocal()

func (s *Service) locker() lock.Locker {
	if s.Locker == nil {
		return processLocker
	}
	return s.Locker
}

// Create opens an empty cart session.
func (s *Service) Create(ctx context.Context) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	id := uuid.NewString()
	st := State{Items: []StateItem{}, UpdatedAt: s.now()}
	err := s.Store.Save(ctx, id, st)
	obs.RecordCartCommand("create", err)
	if err != nil {
		return View{}, fmt.Errorf("save cart: %w", err)
	}
	view := NewView(id, New())
	view.UpdatedAt = st.UpdatedAt
	return view, nil
}

// Get returns the priced view of a session.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	c, st, adjusted, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	if adjusted {
		return s.mutate(ctx, id, "reconcile", keep)
	}
	obs.RecordTotalsComputed()
	view := NewView(id, c)
	view.Adjusted = adjusted
	view.UpdatedAt = st.UpdatedAt
	return view, nil
}

// AddItem adds qty units of productID to the session.
func (s *Service) AddItem(ctx context.Context, id, productID string, qty int) (View, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return View{}, fmt.Errorf("productId is required: %w", ErrInvalidInput)
	}
	if qty <= 0 {
		return View{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	return s.mutate(ctx, id, "add_item", func(ctx context.Context, c Cart) (Cart, error) {
		product, err := s.Catalog.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return c, fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
			}
			return c, err
		}
		next, err := c.AddItem(product, qty)
		if errors.Is(err, ErrOutOfStock) {
			appErr := common.NewAppError("OUT_OF_STOCK", "requested quantity exceeds remaining stock", http.StatusConflict, err)
			appErr.Details = map[string]any{"productId": productID, "remainingStock": c.RemainingStock(product)}
			return c, appErr
		}
		return next, err
	})
}

// SetQuantity replaces the quantity of a line. The returned view reports whether the
// quantity was capped at the product's stock.
func (s *Service) SetQuantity(ctx context.Context, id, productID string, qty int) (View, error) {
	var clamped bool
	view, err := s.mutate(ctx, id, "set_quantity", func(_ context.Context, c Cart) (Cart, error) {
		next, wasClamped, err := c.SetQuantity(productID, qty)
		clamped = wasClamped
		return next, err
	})
	if err != nil {
		return View{}, err
	}
	if clamped {
		obs.RecordQuantityClamped()
		view.QuantityClamped = true
	}
	return view, nil
}

// RemoveItem drops a line from the session.
func (s *Service) RemoveItem(ctx context.Context, id, productID string) (View, error) {
	return s.mutate(ctx, id, "remove_item", func(_ context.Context, c Cart) (Cart, error) {
		return c.RemoveItem(productID), nil
	})
}

// SelectCoupon makes code the session's active coupon.
func (s *Service) SelectCoupon(ctx context.Context, id, code string) (View, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return View{}, fmt.Errorf("code is required: %w", ErrInvalidInput)
	}
	var selected pricing.Coupon
	view, err := s.mutate(ctx, id, "select_coupon", func(ctx context.Context, c Cart) (Cart, error) {
		coupon, err := s.Catalog.GetCoupon(ctx, code)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return c, fmt.Errorf("coupon %s: %w", code, ErrCouponNotFound)
			}
			return c, err
		}
		selected = coupon
		return c.SelectCoupon(coupon), nil
	})
	if err != nil {
		return View{}, err
	}
	obs.RecordCouponApplied(string(selected.Type))
	return view, nil
}

// ClearCoupon removes the session's active coupon.
func (s *Service) ClearCoupon(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, "clear_coupon", func(_ context.Context, c Cart) (Cart, error) {
		return c.ClearCoupon(), nil
	})
}

// Delete discards a session.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.locker().WithLock(ctx, lockKey(id), s.lockTTL(), func(ctx context.Context) error {
		if _, err := s.Store.Load(ctx, id); err != nil {
			return err
		}
		return s.Store.Delete(ctx, id)
	})
	obs.RecordCartCommand("delete", err)
	return err
}

// Products lists the catalog with each product's remaining stock for the session.
func (s *Service) Products(ctx context.Context, id string) ([]catalog.ProductView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	c, _, adjusted, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if adjusted {
		if _, err := s.mutate(ctx, id, "reconcile", keep); err != nil {
			return nil, err
		}
	}
	products, err := s.Catalog.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	views := make([]catalog.ProductView, 0, len(products))
	for _, p := range products {
		v := catalog.NewProductView(p)
		remaining := c.RemainingStock(p)
		v.RemainingStock = &remaining
		views = append(views, v)
	}
	return views, nil
}

// keep persists the cart as loaded, so catalog adjustments stick.
func keep(_ context.Context, c Cart) (Cart, error) { return c, nil }

func lockKey(id string) string {
	return "lock:cart:" + id
}

func (s *Service) mutate(ctx context.Context, id, command string, fn func(context.Context, Cart) (Cart, error)) (View, error) {
	if err := s.ready(); err != nil {
		return View{}, err
	}
	var view View
	err := s.locker().WithLock(ctx, lockKey(id), s.lockTTL(), func(ctx context.Context) error {
		c, _, adjusted, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		next, err := fn(ctx, c)
		if err != nil {
			return err
		}
		st := next.State()
		st.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, id, st); err != nil {
			return fmt.Errorf("save cart: %w", err)
		}
		view = NewView(id, next)
		view.Adjusted = adjusted
		view.UpdatedAt = st.UpdatedAt
		return nil
	})
	obs.RecordCartCommand(command, err)
	s.logOutcome(command, id, err)
	if err != nil {
		return View{}, err
	}
	obs.RecordTotalsComputed()
	return view, nil
}

func (s *Service) logOutcome(command, id string, err error) {
	switch {
	case err == nil:
		s.Logger.Debug().Str("command", command).Str("cart_id", id).Msg("cart command applied")
	case isClientError(err):
		s.Logger.Debug().Err(err).Str("command", command).Str("cart_id", id).Msg("cart command rejected")
	default:
		s.Logger.Error().Err(err).Str("command", command).Str("cart_id", id).Msg("cart command failed")
	}
}

func isClientError(err error) bool {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus < http.StatusInternalServerError
	}
	for _, target := range []error{ErrInvalidInput, ErrNotFound, ErrItemNotFound, ErrProductNotFound, ErrCouponNotFound, ErrOutOfStock} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// load resolves stored state against the current catalog. Products that left the catalog
// drop out, quantities above the current stock are clamped and an unknown coupon code
// clears the coupon. adjusted reports whether any of that happened.
func (s *Service) load(ctx context.Context, id string) (Cart, State, bool, error) {
	st, err := s.Store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Cart{}, State{}, false, ErrNotFound
		}
		return Cart{}, State{}, false, fmt.Errorf("load cart: %w", err)
	}

	var adjusted bool
	items := make([]pricing.Item, 0, len(st.Items))
	if len(st.Items) > 0 {
		products, err := s.Catalog.ListProducts(ctx)
		if err != nil {
			return Cart{}, State{}, false, fmt.Errorf("list products: %w", err)
		}
		byID := make(map[string]pricing.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}
		for _, line := range st.Items {
			p, ok := byID[line.ProductID]
			if !ok {
				adjusted = true
				continue
			}
			items = append(items, pricing.Item{Product: p, Quantity: line.Qty})
		}
	}

	var coupon *pricing.Coupon
	if st.CouponCode != "" {
		cp, err := s.Catalog.GetCoupon(ctx, st.CouponCode)
		switch {
		case err == nil:
			coupon = &cp
		case errors.Is(err, catalog.ErrNotFound):
			adjusted = true
		default:
			return Cart{}, State{}, false, fmt.Errorf("get coupon: %w", err)
		}
	}

	c, restored := Restore(items, coupon)
	if adjusted || restored {
		s.Logger.Info().Str("cart_id", id).Msg("cart adjusted to current catalog")
	}
	return c, st, adjusted || restored, nil
}
