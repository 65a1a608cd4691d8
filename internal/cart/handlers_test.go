package cart_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-cart/internal/cart"
	"github.com/noah-isme/toko-cart/internal/catalog"
	"github.com/noah-isme/toko-cart/internal/pricing"
)

type viewEnvelope struct {
	Data     cart.View `json:"data"`
	Currency string    `json:"currency"`
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	d := decimal.RequireFromString
	cat, err := catalog.NewStatic([]pricing.Product{
		{ID: "p1", Name: "Widget", Price: d("1000"), Stock: 20, Discounts: []pricing.DiscountRule{{Quantity: 10, Rate: d("0.1")}}},
		{ID: "p2", Name: "Cable", Price: d("250"), Stock: 5},
	}, []pricing.Coupon{
		{Code: "PCT5", Name: "5% off", Type: pricing.CouponPercentage, Value: d("0.05")},
		{Code: "OFF1000", Name: "1000 off", Type: pricing.CouponFixedAmount, Value: d("1000")},
	})
	require.NoError(t, err)

	h := &cart.Handler{
		Svc: &cart.Service{
			Store:   cart.NewMemoryStore(time.Hour),
			Catalog: cat,
			Logger:  zerolog.Nop(),
		},
		Currency: "KRW",
	}
	r := chi.NewRouter()
	r.Route("/api/v1/carts", func(c chi.Router) { h.Mount(c) })
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) cart.View {
	t.Helper()
	var env viewEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, "KRW", env.Currency)
	return env.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func createCart(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/carts", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	return decodeView(t, rec).ID
}

func TestHandlerCartFlow(t *testing.T) {
	h := newRouter(t)
	id := createCart(t, h)
	base := "/api/v1/carts/" + id

	rec := do(t, h, http.MethodPost, base+"/items", `{"productId":"p1","qty":10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	require.Len(t, view.Items, 1)
	require.True(t, view.Items[0].SubtotalBeforeDiscount.Equal(decimal.NewFromInt(10000)))
	require.True(t, view.Items[0].SubtotalAfterDiscount.Equal(decimal.NewFromInt(9000)))

	rec = do(t, h, http.MethodPut, base+"/coupon", `{"code":"PCT5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	require.True(t, view.Totals.TotalAfterDiscount.Equal(decimal.NewFromInt(8550)))
	require.True(t, view.Totals.TotalDiscount.Equal(decimal.NewFromInt(1450)))

	rec = do(t, h, http.MethodPatch, base+"/items/p1", `{"qty":30}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeView(t, rec)
	require.True(t, view.QuantityClamped)
	require.Equal(t, 20, view.Items[0].Quantity)

	rec = do(t, h, http.MethodDelete, base+"/coupon", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, decodeView(t, rec).Coupon)

	rec = do(t, h, http.MethodGet, base+"/products", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"remainingStock":0`)

	rec = do(t, h, http.MethodPatch, base+"/items/p1", `{"qty":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, decodeView(t, rec).Items)

	rec = do(t, h, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerFixedCouponFloorsAtZero(t *testing.T) {
	h := newRouter(t)
	base := "/api/v1/carts/" + createCart(t, h)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/items", `{"productId":"p2","qty":2}`).Code)
	rec := do(t, h, http.MethodPut, base+"/coupon", `{"code":"OFF1000"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	require.True(t, view.Totals.TotalBeforeDiscount.Equal(decimal.NewFromInt(500)))
	require.True(t, view.Totals.TotalAfterDiscount.IsZero())
	require.True(t, view.Totals.TotalDiscount.Equal(decimal.NewFromInt(500)))
}

func TestHandlerOutOfStock(t *testing.T) {
	h := newRouter(t)
	base := "/api/v1/carts/" + createCart(t, h)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, base+"/items", `{"productId":"p2","qty":5}`).Code)
	rec := do(t, h, http.MethodPost, base+"/items", `{"productId":"p2","qty":1}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	env := decodeError(t, rec)
	require.Equal(t, "OUT_OF_STOCK", env.Error.Code)
	require.EqualValues(t, 0, env.Error.Details["remainingStock"])
}

func TestHandlerValidationAndNotFound(t *testing.T) {
	h := newRouter(t)
	base := "/api/v1/carts/" + createCart(t, h)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed", http.MethodPost, base + "/items", `{`, http.StatusBadRequest, "BAD_REQUEST"},
		{"zero qty", http.MethodPost, base + "/items", `{"productId":"p1","qty":0}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing product id", http.MethodPost, base + "/items", `{"qty":1}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing qty", http.MethodPatch, base + "/items/p1", `{}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"empty code", http.MethodPut, base + "/coupon", `{"code":""}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"unknown product", http.MethodPost, base + "/items", `{"productId":"zz","qty":1}`, http.StatusNotFound, "NOT_FOUND"},
		{"unknown line", http.MethodPatch, base + "/items/p1", `{"qty":2}`, http.StatusNotFound, "NOT_FOUND"},
		{"unknown coupon", http.MethodPut, base + "/coupon", `{"code":"NOPE"}`, http.StatusNotFound, "NOT_FOUND"},
		{"unknown cart", http.MethodGet, "/api/v1/carts/does-not-exist", "", http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			require.Equal(t, tc.code, decodeError(t, rec).Error.Code)
		})
	}
}

func TestHandlerValidationDetailsNameFields(t *testing.T) {
	h := newRouter(t)
	base := "/api/v1/carts/" + createCart(t, h)
	rec := do(t, h, http.MethodPost, base+"/items", `{"qty":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeError(t, rec)
	require.Equal(t, "required", env.Error.Details["productId"])
	require.True(t, strings.Contains(env.Error.Message, "validation"))
}

func TestHandlerWithoutService(t *testing.T) {
	h := &cart.Handler{}
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/carts/x", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
