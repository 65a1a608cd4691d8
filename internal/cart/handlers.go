package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-cart/internal/common"
)

// Handler wires cart services to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Currency string
}

var defaultValidate = common.NewValidator()

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Qty       int    `json:"qty" validate:"gt=0"`
}

type setQuantityRequest struct {
	Qty *int `json:"qty" validate:"required"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required"`
}

// Mount registers the cart routes on r. writeMW wraps the state-changing routes.
func (h *Handler) Mount(r chi.Router, writeMW ...func(http.Handler) http.Handler) {
	r.Get("/{id}", h.Get)
	r.Get("/{id}/products", h.Products)
	r.Group(func(g chi.Router) {
		g.Use(writeMW...)
		g.Post("/", h.Create)
		g.Delete("/{id}", h.Delete)
		g.Post("/{id}/items", h.AddItem)
		g.Patch("/{id}/items/{productId}", h.UpdateItem)
		g.Delete("/{id}/items/{productId}", h.RemoveItem)
		g.Put("/{id}/coupon", h.SelectCoupon)
		g.Delete("/{id}/coupon", h.ClearCoupon)
	})
}

// Create opens a new cart session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	view, err := h.Svc.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeView(w, http.StatusCreated, view)
}

// Get returns cart lines, applied rates, subtotals and totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeView(w, http.StatusOK, view)
}

// Delete discards a cart session.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Products lists the catalog with the remaining stock for this cart.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	products, err := h.Svc.Products(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, products)
}

// AddItem adds units of a product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var payload addItemRequest
	if !h.decode(w, r, &payload) {
		return
	}
	view, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "id"), payload.ProductID, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeView(w, http.StatusOK, view)
}

// UpdateItem sets the quantity of a cart line. A zero quantity removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var payload setQuantityRequest
	if !h.decode(w, r, &payload) {
		return
	}
	view, err := h.Svc.SetQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"), *payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeView(w, http.StatusOK, view)
}

// RemoveItem deletes a cart line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	view, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeView(w, http.StatusOK, view)
}

// SelectCoupon makes a coupon the cart's active coupon.
func (h *Handler) SelectCoupon(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var payload couponRequest
	if !h.decode(w, r, &payload) {
		return
	}
	view, err := h.Svc.SelectCoupon(r.Context(), chi.URLParam(r, "id"), payload.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeView(w, http.StatusOK, view)
}

// ClearCoupon removes the cart's active coupon.
func (h *Handler) ClearCoupon(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	view, err := h.Svc.ClearCoupon(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeView(w, http.StatusOK, view)
}

func (h *Handler) configured(w http.ResponseWriter) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	v := h.Validate
	if v == nil {
		v = defaultValidate
	}
	if err := v.Struct(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "validation failed", common.ValidationDetails(err))
		return false
	}
	return true
}

func (h *Handler) writeView(w http.ResponseWriter, status int, view View) {
	common.JSON(w, status, map[string]any{
		"data":     view,
		"currency": h.Currency,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrProductNotFound), errors.Is(err, ErrCouponNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrOutOfStock):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
