package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercentage applies a percentage of the subtotal.
	KindPercentage Kind = "percentage"
	// KindFixed applies a flat amount capped at the subtotal.
	KindFixed Kind = "fixed"
)

var (
	// ErrNotFound is returned by repositories when no active promotion
	// matches a code.
	ErrNotFound = errors.New("promotion not found")
	// ErrExpired is returned when a promotion is outside its valid window.
	ErrExpired = errors.New("coupon has expired")
	// ErrExhausted is returned when a promotion has no uses left.
	ErrExhausted = errors.New("coupon usage limit reached")
)

// NotFoundError carries the normalized code that failed to resolve.
type NotFoundError struct {
	Code string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("coupon %q not found", e.Code)
}

// MinimumPurchaseError indicates the subtotal is below the promotion's
// minimum purchase amount. Shortfall is the amount still missing, for
// display.
type MinimumPurchaseError struct {
	Code        string
	MinPurchase decimal.Decimal
	Shortfall   decimal.Decimal
}

func (e *MinimumPurchaseError) Error() string {
	return fmt.Sprintf("coupon %q requires a minimum purchase of %s (add %s more)",
		e.Code, e.MinPurchase, e.Shortfall)
}

// Promotion is a named discount rule. Owned by the catalog; this engine only
// reads it and, around a successful order, adjusts the usage counter.
type Promotion struct {
	ID          string
	Code        string
	Kind        Kind
	Value       decimal.Decimal
	MinPurchase decimal.Decimal
	// MaxDiscount caps the computed discount; zero means no cap.
	MaxDiscount decimal.Decimal
	// MaxUses limits redemptions; zero means unlimited.
	MaxUses     int
	Uses        int
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	Description string
}

// Applied pairs a validated promotion with its computed discount and the
// subtotal it was validated against.
type Applied struct {
	Promotion *Promotion
	Discount  decimal.Decimal
	Subtotal  decimal.Decimal
}

// Repository provides lookup and usage-counter mutation of promotions.
// ReserveUse must be a conditional increment: it succeeds only when the
// stored usage count still equals expectedUses and is below the limit.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Promotion, error)
	ReserveUse(ctx context.Context, id string, expectedUses int) (bool, error)
	ReleaseUse(ctx context.Context, id string) error
}
