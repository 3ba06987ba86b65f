package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/lazzat-eats/order-engine/internal/domain/cart"
	"github.com/lazzat-eats/order-engine/internal/domain/customer"
	"github.com/lazzat-eats/order-engine/internal/domain/delivery"
	"github.com/lazzat-eats/order-engine/internal/domain/loyalty"
	"github.com/lazzat-eats/order-engine/internal/domain/order"
	"github.com/lazzat-eats/order-engine/internal/domain/promotion"
)

// checkoutRequest is the wire contract for one checkout attempt. It carries
// only source inputs; client-computed totals have no field to arrive in.
type checkoutRequest struct {
	CustomerID      string                `json:"customer_id"`
	Lines           []cart.Line           `json:"cart_lines"`
	CouponCode      string                `json:"coupon_code,omitempty"`
	PointsRequested int                   `json:"points_requested,omitempty"`
	DeliveryType    string                `json:"delivery_type"`
	Coordinates     *delivery.Coordinates `json:"delivery_coordinates,omitempty"`
}

type orderLineResponse struct {
	ProductID   string       `json:"product_id"`
	ProductName string       `json:"product_name"`
	UnitPrice   float64      `json:"unit_price"`
	Quantity    int          `json:"quantity"`
	Removed     []string     `json:"removed,omitempty"`
	Extras      []cart.Extra `json:"extras,omitempty"`
	Note        string       `json:"note,omitempty"`
	LineTotal   float64      `json:"line_total"`
}

type orderResponse struct {
	ID                string              `json:"id"`
	DeliveryType      string              `json:"delivery_type"`
	Address           string              `json:"address,omitempty"`
	DistanceKm        float64             `json:"distance_km,omitempty"`
	Lines             []orderLineResponse `json:"lines"`
	Subtotal          float64             `json:"subtotal"`
	PromotionDiscount float64             `json:"promotion_discount"`
	PointsDiscount    float64             `json:"points_discount"`
	DeliveryFee       float64             `json:"delivery_fee"`
	Total             float64             `json:"total"`
	PointsRedeemed    int                 `json:"points_redeemed"`
	PointsEarned      int                 `json:"points_earned"`
	PromotionCode     string              `json:"promotion_code,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// Checkout runs one checkout attempt and returns the committed order or a
// typed failure. The response is never a partial object.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := delivery.Kind(req.DeliveryType)
	if kind != delivery.KindDelivery && kind != delivery.KindPickup {
		writeError(w, http.StatusBadRequest, `delivery_type must be "delivery" or "pickup"`)
		return
	}

	o, err := h.assembler.Checkout(r.Context(), order.CheckoutRequest{
		CustomerID:      req.CustomerID,
		Lines:           req.Lines,
		CouponCode:      req.CouponCode,
		PointsRequested: req.PointsRequested,
		DeliveryKind:    kind,
		Coordinates:     req.Coordinates,
	})
	if err != nil {
		status, message := mapCheckoutError(err)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// mapCheckoutError converts domain errors to HTTP status codes with the
// specific, customer-actionable message each failure carries.
func mapCheckoutError(err error) (int, string) {
	// Fixable request problems.
	var (
		iqErr *cart.InvalidQuantityError
		upErr *cart.UnknownProductError
		puErr *cart.ProductUnavailableError
	)
	switch {
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, delivery.ErrMissingCoordinates),
		errors.Is(err, loyalty.ErrNegativePoints):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &iqErr):
		return http.StatusBadRequest, iqErr.Error()
	case errors.As(err, &upErr):
		return http.StatusBadRequest, upErr.Error()
	case errors.As(err, &puErr):
		return http.StatusBadRequest, puErr.Error()
	case errors.Is(err, customer.ErrNotFound):
		return http.StatusUnauthorized, "customer not recognized, please sign in again"
	}

	// Business rejections.
	var (
		nfErr  *promotion.NotFoundError
		mpErr  *promotion.MinimumPurchaseError
		ipErr  *loyalty.InsufficientPointsError
		osaErr *delivery.OutOfServiceAreaError
	)
	switch {
	case errors.As(err, &nfErr):
		return http.StatusUnprocessableEntity, nfErr.Error()
	case errors.Is(err, promotion.ErrExpired), errors.Is(err, promotion.ErrExhausted):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &mpErr):
		return http.StatusUnprocessableEntity, mpErr.Error()
	case errors.As(err, &ipErr):
		return http.StatusUnprocessableEntity, ipErr.Error()
	case errors.As(err, &osaErr):
		return http.StatusUnprocessableEntity, osaErr.Error()
	}

	if errors.Is(err, order.ErrStoreUnavailable) {
		return http.StatusServiceUnavailable, "we could not save your order, please try again in a moment"
	}

	return http.StatusInternalServerError, "checkout failed, please try again"
}

func toOrderResponse(o *order.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice.InexactFloat64(),
			Quantity:    l.Quantity,
			Removed:     l.Removed,
			Extras:      l.Extras,
			Note:        l.Note,
			LineTotal:   l.LineTotal.InexactFloat64(),
		}
	}

	return orderResponse{
		ID:                o.ID,
		DeliveryType:      string(o.DeliveryKind),
		Address:           o.Address,
		DistanceKm:        o.DistanceKm,
		Lines:             lines,
		Subtotal:          o.Subtotal.InexactFloat64(),
		PromotionDiscount: o.PromotionDiscount.InexactFloat64(),
		PointsDiscount:    o.PointsDiscount.InexactFloat64(),
		DeliveryFee:       o.DeliveryFee.InexactFloat64(),
		Total:             o.Total.InexactFloat64(),
		PointsRedeemed:    o.PointsRedeemed,
		PointsEarned:      o.PointsEarned,
		PromotionCode:     o.PromotionCode,
		CreatedAt:         o.CreatedAt,
	}
}
