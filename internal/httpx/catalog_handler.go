package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hartanto/go-cafe-orders/internal/orders"
	"github.com/hartanto/go-cafe-orders/internal/postgres"
)

// CatalogHandler serves the read-only product and location listings.
type CatalogHandler struct {
	DB *postgres.Store
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/v1/products", h.listProducts)
	r.Get("/v1/products/category/{category}", h.listByCategory)
	r.Get("/v1/products/{id}", h.getProduct)
	r.Get("/v1/locations", h.listLocations)
	r.Get("/v1/locations/{id}", h.getLocation)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	h.writeProducts(w, r, r.URL.Query().Get("category"))
}

func (h *CatalogHandler) listByCategory(w http.ResponseWriter, r *http.Request) {
	h.writeProducts(w, r, chi.URLParam(r, "category"))
}

func (h *CatalogHandler) writeProducts(w http.ResponseWriter, r *http.Request, category string) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.DB.ListProducts(ctx, category)
	if err != nil {
		logger.Error().Err(err).Msg("product listing failed")
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "listing failed"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: ps})
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.DB.GetProduct(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, orders.ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, apiResponse{Success: false, Message: "Product not found"})
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("product lookup failed")
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: p})
}

func (h *CatalogHandler) listLocations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ls, err := h.DB.ListLocations(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("location listing failed")
		writeJSON(w, http.StatusInternalServerError, apiResponse{Success: false, Message: "listing failed"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: ls})
}

func (h *CatalogHandler) getLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	l, err := h.DB.GetLocation(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, apiResponse{Success: false, Message: "Location not found"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: l})
}
