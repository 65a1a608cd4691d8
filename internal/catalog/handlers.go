package catalog

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-cart/internal/common"
	"github.com/noah-isme/toko-cart/internal/pricing"
)

// ProductView is the public product payload, advertising the best reachable discount.
type ProductView struct {
	pricing.Product
	MaxDiscountRate decimal.Decimal `json:"maxDiscountRate"`
	RemainingStock  *int            `json:"remainingStock,omitempty"`
}

// NewProductView builds the payload for p.
func NewProductView(p pricing.Product) ProductView {
	if p.Discounts == nil {
		p.Discounts = []pricing.DiscountRule{}
	}
	return ProductView{Product: p, MaxDiscountRate: pricing.MaxRate(p.Discounts)}
}

// Handler exposes public catalog endpoints.
type Handler struct {
	Catalog      Catalog
	DefaultLimit int
	MaxLimit     int
}

// Products handles GET /api/v1/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	products, err := h.Catalog.ListProducts(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load products", nil)
		return
	}
	limit := h.DefaultLimit
	if limit <= 0 {
		limit = 50
	}
	page, perPage := common.ParsePagination(r, limit, h.MaxLimit)
	pg := common.Pagination{Page: page, PerPage: perPage, TotalItems: len(products)}
	start, end := pg.Window()
	views := make([]ProductView, 0, end-start)
	for _, p := range products[start:end] {
		views = append(views, NewProductView(p))
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(products)))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": pg,
	})
}

// Coupons handles GET /api/v1/coupons.
func (h *Handler) Coupons(w http.ResponseWriter, r *http.Request) {
	if h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	coupons, err := h.Catalog.ListCoupons(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load coupons", nil)
		return
	}
	if coupons == nil {
		coupons = []pricing.Coupon{}
	}
	common.Data(w, http.StatusOK, coupons)
}
