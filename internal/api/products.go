package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/letteros/letteros/internal/domain"
	"github.com/letteros/letteros/internal/pkg/httputil"
)

// ListProducts handles GET /api/products
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.products.List(r.Context(), userID(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []domain.LaunchContent{}
	}
	httputil.OK(w, items)
}

// CreateProduct handles POST /api/products
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.LaunchContent
	if !httputil.Decode(w, r, &in) {
		return
	}
	lc, err := h.products.Create(r.Context(), userID(r), &in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.Created(w, lc)
}

// GetProduct handles GET /api/products/{id}
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	lc, err := h.products.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, lc)
}

// UpdateProduct handles PUT /api/products/{id}
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.LaunchContent
	if !httputil.Decode(w, r, &in) {
		return
	}
	lc, err := h.products.Update(r.Context(), userID(r), chi.URLParam(r, "id"), &in)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.OK(w, lc)
}

// DeleteProduct handles DELETE /api/products/{id}
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.NoContent(w)
}
