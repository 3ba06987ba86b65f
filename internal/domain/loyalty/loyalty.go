// Package loyalty prices point redemptions and records accruals in an
// append-only ledger. Balances only change through ledger entries.
package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

const (
	// PointValue is the fixed conversion rate: som of discount per point.
	PointValue = 100
	// accrualDivisor and accrualRate define earning: floor(net/1000) * 5
	// points, computed on the post-discount, pre-delivery-fee amount.
	accrualDivisor = 1000
	accrualRate    = 5
)

// InsufficientPointsError indicates a redemption request beyond the
// customer's available balance.
type InsufficientPointsError struct {
	Requested int
	Balance   int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("not enough points: requested %d, available %d", e.Requested, e.Balance)
}

// ErrNegativePoints is returned for a negative redemption request.
var ErrNegativePoints = errors.New("points requested must not be negative")

// RedemptionDiscount prices a points-redemption request. The discount is
// clamped so it never exceeds the monetary value of the requested points nor
// the remaining (post-promotion) subtotal.
func RedemptionDiscount(requested, balance int, remaining decimal.Decimal) (decimal.Decimal, error) {
	if requested < 0 {
		return decimal.Zero, ErrNegativePoints
	}
	if requested == 0 {
		return decimal.Zero, nil
	}
	if requested > balance {
		return decimal.Zero, &InsufficientPointsError{Requested: requested, Balance: balance}
	}

	discount := decimal.NewFromInt(int64(requested) * PointValue)
	if discount.GreaterThan(remaining) {
		discount = remaining
	}
	if discount.IsNegative() {
		return decimal.Zero, nil
	}
	return discount, nil
}

// Earned computes the points accrued for an order with the given net
// subtotal (after all discounts, before delivery fee).
func Earned(netSubtotal decimal.Decimal) int {
	if !netSubtotal.IsPositive() {
		return 0
	}
	steps := netSubtotal.Div(decimal.NewFromInt(accrualDivisor)).Floor()
	return int(steps.IntPart()) * accrualRate
}

// Entry is one append-only ledger record. Corrections are new compensating
// entries, never in-place edits.
type Entry struct {
	ID         string
	CustomerID string
	Delta      int
	Reason     string
	Balance    int
	CreatedAt  time.Time
}

// Repository persists ledger entries and applies their delta to the
// customer's balance atomically.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
}

// Ledger appends accrual entries after committed orders.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

// NewLedger creates a Ledger backed by the given Repository.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// RecordAccrual appends the single post-commit ledger entry for an order:
// delta = earned - redeemed, with the resulting balance. balance is the
// customer's balance as read at checkout.
func (l *Ledger) RecordAccrual(ctx context.Context, customerID, orderID string, earned, redeemed, balance int) (*Entry, error) {
	e := &Entry{
		ID:         orderID,
		CustomerID: customerID,
		Delta:      earned - redeemed,
		Reason:     fmt.Sprintf("order %s: earned %d, redeemed %d", orderID, earned, redeemed),
		Balance:    balance + earned - redeemed,
		CreatedAt:  l.now(),
	}
	if err := l.repo.Append(ctx, e); err != nil {
		return nil, errors.Wrap(err, "append ledger entry")
	}
	return e, nil
}
