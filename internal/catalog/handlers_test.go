package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	products, coupons, err := ParseFile([]byte(sampleYAML))
	require.NoError(t, err)
	cat, err := NewStatic(products, coupons)
	require.NoError(t, err)
	return &Handler{Catalog: cat, DefaultLimit: 1, MaxLimit: 10}
}

func TestProductsHandlerPaginates(t *testing.T) {
	h := newHandler(t)
	rec := httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Total-Count"))

	var body struct {
		Data []struct {
			ID              string `json:"id"`
			MaxDiscountRate string `json:"maxDiscountRate"`
		} `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			PerPage    int `json:"per_page"`
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "p2", body.Data[0].ID)
	require.Equal(t, "0", body.Data[0].MaxDiscountRate)
	require.Equal(t, 2, body.Pagination.Page)
	require.Equal(t, 2, body.Pagination.TotalItems)
}

func TestProductsHandlerAdvertisesMaxRate(t *testing.T) {
	h := newHandler(t)
	rec := httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"maxDiscountRate":"0.25"`)
	require.NotContains(t, rec.Body.String(), "remainingStock")
}

func TestCouponsHandler(t *testing.T) {
	h := newHandler(t)
	rec := httptest.NewRecorder()
	h.Coupons(rec, httptest.NewRequest(http.MethodGet, "/api/v1/coupons", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"code":"PCT5"`)
	require.Contains(t, rec.Body.String(), `"type":"fixed_amount"`)
}

func TestHandlersWithoutCatalog(t *testing.T) {
	h := &Handler{}
	rec := httptest.NewRecorder()
	h.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
