package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type productResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Category  string  `json:"category"`
	Available bool    `json:"available"`
	InStock   bool    `json:"in_stock"`
}

// ListProducts returns the full menu.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load the menu")
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{
			ID:        p.ID,
			Name:      p.Name,
			Price:     p.Price.InexactFloat64(),
			Category:  p.Category,
			Available: p.Available,
			InStock:   p.InStock,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
