// Package handler exposes the ordering engine over HTTP. Handlers decode
// requests, delegate to the domain, and map typed domain errors to specific,
// actionable responses.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lazzat-eats/order-engine/internal/domain/delivery"
	"github.com/lazzat-eats/order-engine/internal/domain/order"
	"github.com/lazzat-eats/order-engine/internal/domain/product"
)

// Handler holds the domain dependencies for all HTTP endpoints.
type Handler struct {
	products   product.Repository
	assembler  *order.Assembler
	calculator *delivery.Calculator
	feeTable   delivery.ConfigSource
}

// New constructs a Handler with the required domain dependencies.
func New(
	products product.Repository,
	assembler *order.Assembler,
	calculator *delivery.Calculator,
	feeTable delivery.ConfigSource,
) *Handler {
	return &Handler{
		products:   products,
		assembler:  assembler,
		calculator: calculator,
		feeTable:   feeTable,
	}
}

// Routes mounts all API endpoints. The security middleware guards the
// checkout route; catalog and quote lookups stay public.
func (h *Handler) Routes(security func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/products", h.ListProducts)
	r.Get("/delivery/quote", h.DeliveryQuote)
	r.Group(func(r chi.Router) {
		r.Use(security)
		r.Post("/checkout", h.Checkout)
	})
	return r
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}
