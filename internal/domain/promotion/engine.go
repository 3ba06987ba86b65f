package promotion

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// reserveAttempts bounds the optimistic reservation loop. Losing a round
// means another checkout consumed a use between our read and our conditional
// increment; after this many conflicts the late arrival sees ErrExhausted.
const reserveAttempts = 3

// Engine validates promotion codes against a subtotal and manages usage
// reservation around order commit.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine creates an Engine backed by the given Repository.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// Apply resolves and validates the code against the subtotal and returns the
// computed discount. It is read-only: usage is not consumed. Checks run in a
// fixed order, each with its own error: not found, expired, exhausted,
// minimum purchase not met.
func (e *Engine) Apply(ctx context.Context, code string, subtotal decimal.Decimal) (*Applied, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	promo, err := e.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{Code: normalized}
		}
		return nil, errors.Wrap(err, "lookup promotion")
	}

	if err := e.validate(promo, subtotal); err != nil {
		return nil, err
	}

	return &Applied{
		Promotion: promo,
		Discount:  Discount(promo, subtotal),
		Subtotal:  subtotal,
	}, nil
}

func (e *Engine) validate(promo *Promotion, subtotal decimal.Decimal) error {
	now := e.now()
	if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
		return ErrExpired
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return ErrExpired
	}
	if promo.MaxUses > 0 && promo.Uses >= promo.MaxUses {
		return ErrExhausted
	}
	if subtotal.LessThan(promo.MinPurchase) {
		return &MinimumPurchaseError{
			Code:        promo.Code,
			MinPurchase: promo.MinPurchase,
			Shortfall:   promo.MinPurchase.Sub(subtotal),
		}
	}
	return nil
}

// Reserve consumes one use of the promotion with optimistic concurrency:
// read the current usage count, attempt a conditional increment, and on
// conflict re-read and re-validate. Concurrent redemptions of a single-use
// code therefore yield exactly one winner; the rest get ErrExhausted.
func (e *Engine) Reserve(ctx context.Context, applied *Applied) error {
	promo := applied.Promotion
	for range reserveAttempts {
		ok, err := e.repo.ReserveUse(ctx, promo.ID, promo.Uses)
		if err != nil {
			return errors.Wrap(err, "reserve promotion use")
		}
		if ok {
			return nil
		}

		fresh, err := e.repo.FindByCode(ctx, promo.Code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrExhausted
			}
			return errors.Wrap(err, "re-read promotion")
		}
		if err := e.validate(fresh, applied.Subtotal); err != nil {
			return err
		}
		promo.Uses = fresh.Uses
	}
	return ErrExhausted
}

// Release returns a previously reserved use, compensating a checkout that
// failed after reservation. Usage must never stay incremented for an order
// that was not committed.
func (e *Engine) Release(ctx context.Context, applied *Applied) error {
	if err := e.repo.ReleaseUse(ctx, applied.Promotion.ID); err != nil {
		return errors.Wrap(err, "release promotion use")
	}
	return nil
}

// Discount computes the monetary discount of the promotion for the given
// subtotal: percentage-of-subtotal or flat amount, capped at the promotion's
// own MaxDiscount (when set) and at the subtotal itself.
func Discount(promo *Promotion, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch promo.Kind {
	case KindPercentage:
		amount = subtotal.Mul(promo.Value).Div(hundred)
	case KindFixed:
		amount = promo.Value
	default:
		return decimal.Zero
	}

	if promo.MaxDiscount.IsPositive() && amount.GreaterThan(promo.MaxDiscount) {
		amount = promo.MaxDiscount
	}
	if amount.GreaterThan(subtotal) {
		amount = subtotal
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}
