package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lazzat-eats/order-engine/internal/domain/delivery"
)

type quoteResponse struct {
	Fee        float64 `json:"fee"`
	DistanceKm float64 `json:"distance_km"`
	Free       bool    `json:"free"`
}

// DeliveryQuote previews the delivery fee for given coordinates and cart
// subtotal, using the same calculator as checkout. The preview is advisory;
// checkout recomputes everything.
func (h *Handler) DeliveryQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lng query parameters are required")
		return
	}

	subtotal := decimal.Zero
	if raw := q.Get("subtotal"); raw != "" {
		var err error
		if subtotal, err = decimal.NewFromString(raw); err != nil {
			writeError(w, http.StatusBadRequest, "subtotal must be a number")
			return
		}
	}

	cfg, err := h.feeTable.Current(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("load delivery config", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not compute a delivery quote")
		return
	}

	quote, err := h.calculator.Quote(delivery.KindDelivery, &delivery.Coordinates{Lat: lat, Lng: lng}, cfg, subtotal)
	if err != nil {
		var osaErr *delivery.OutOfServiceAreaError
		if errors.As(err, &osaErr) {
			writeError(w, http.StatusUnprocessableEntity, osaErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "could not compute a delivery quote")
		return
	}

	writeJSON(w, http.StatusOK, quoteResponse{
		Fee:        quote.Fee.InexactFloat64(),
		DistanceKm: quote.DistanceKm,
		Free:       quote.Free,
	})
}
