package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lazzat-eats/order-engine/internal/domain/cart"
	"github.com/lazzat-eats/order-engine/internal/domain/delivery"
)

// State tracks a checkout through the assembler. Committed and Rejected are
// terminal.
type State string

const (
	StateDraft     State = "draft"
	StateValidated State = "validated"
	StatePriced    State = "priced"
	StateCommitted State = "committed"
	StateRejected  State = "rejected"
)

// LineSnapshot is a frozen line item: product name and prices as computed at
// order time, never a live re-read of the catalog.
type LineSnapshot struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Removed     []string        `json:"removed,omitempty"`
	Extras      []cart.Extra    `json:"extras,omitempty"`
	Note        string          `json:"note,omitempty"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// Order is the immutable record of a committed checkout. Every monetary
// field was derived server-side; the discount breakdown keeps promotion and
// points separate.
type Order struct {
	ID            string
	State         State
	CustomerID    string
	CustomerEmail string
	CustomerName  string

	DeliveryKind delivery.Kind
	// Address is the reverse-geocoded display address. Advisory only; it
	// never participates in pricing.
	Address    string
	DistanceKm float64

	Lines []LineSnapshot

	Subtotal          decimal.Decimal
	PromotionDiscount decimal.Decimal
	PointsDiscount    decimal.Decimal
	DeliveryFee       decimal.Decimal
	Total             decimal.Decimal

	PointsRedeemed int
	PointsEarned   int

	// PromotionCode is empty when no promotion was applied.
	PromotionCode string

	CreatedAt time.Time
}

// Repository defines persistence for orders. Create must be atomic: either
// the full order becomes visible or nothing does.
type Repository interface {
	Create(ctx context.Context, o *Order) error
}

// Geocoder resolves coordinates to a display address. Implementations are
// best-effort and must return a placeholder rather than an error.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) string
}
