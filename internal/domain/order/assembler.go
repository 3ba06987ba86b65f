package order

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/lazzat-eats/order-engine/internal/domain/cart"
	"github.com/lazzat-eats/order-engine/internal/domain/customer"
	"github.com/lazzat-eats/order-engine/internal/domain/delivery"
	"github.com/lazzat-eats/order-engine/internal/domain/loyalty"
	"github.com/lazzat-eats/order-engine/internal/domain/product"
	"github.com/lazzat-eats/order-engine/internal/domain/promotion"
)

// ErrStoreUnavailable is returned when the order could not be persisted
// after retries. The checkout can be safely re-submitted.
var ErrStoreUnavailable = errors.New("order store unavailable")

// CheckoutRequest is the full input contract for one checkout attempt.
// Client-supplied totals have no place here: every number is recomputed from
// source inputs.
type CheckoutRequest struct {
	CustomerID      string
	Lines           []cart.Line
	CouponCode      string
	PointsRequested int
	DeliveryKind    delivery.Kind
	Coordinates     *delivery.Coordinates
}

// Metrics holds optional counters the assembler reports to.
type Metrics struct {
	Committed          metric.Int64Counter
	SideEffectFailures metric.Int64Counter
}

// Assembler runs the checkout state machine: Draft -> Validated -> Priced ->
// Committed, or Rejected with no side effects.
type Assembler struct {
	products   product.Repository
	promotions *promotion.Engine
	ledger     *loyalty.Ledger
	calculator *delivery.Calculator
	feeTable   delivery.ConfigSource
	customers  customer.Provider
	orders     Repository
	geocoder   Geocoder
	metrics    Metrics

	newBackOff func() backoff.BackOff
}

// NewAssembler wires the assembler with its collaborators.
func NewAssembler(
	products product.Repository,
	promotions *promotion.Engine,
	ledger *loyalty.Ledger,
	calculator *delivery.Calculator,
	feeTable delivery.ConfigSource,
	customers customer.Provider,
	orders Repository,
	geocoder Geocoder,
	metrics Metrics,
) *Assembler {
	return &Assembler{
		products:   products,
		promotions: promotions,
		ledger:     ledger,
		calculator: calculator,
		feeTable:   feeTable,
		customers:  customers,
		orders:     orders,
		geocoder:   geocoder,
		metrics:    metrics,
		newBackOff: defaultBackOff,
	}
}

// defaultBackOff bounds the order-insert retry to a few quick attempts; a
// checkout response must not hang on a struggling database.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	return backoff.WithMaxRetries(b, 3)
}

// pricing holds the server-side derived numbers for one checkout.
type pricing struct {
	agg            *cart.Aggregation
	applied        *promotion.Applied
	promoDiscount  decimal.Decimal
	pointsDiscount decimal.Decimal
	netSubtotal    decimal.Decimal
	quote          *delivery.Quote
	total          decimal.Decimal
	pointsEarned   int
}

// Checkout runs one full checkout attempt and returns the committed order or
// a typed rejection. On rejection nothing is persisted and no usage counter
// stays incremented.
func (a *Assembler) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	cust, err := a.customers.CurrentCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, a.reject(ctx, StateDraft, errors.Wrap(err, "resolve customer"))
	}

	// Draft -> Validated: aggregate the cart against the live catalog.
	agg, err := a.validate(ctx, req.Lines)
	if err != nil {
		return nil, a.reject(ctx, StateDraft, err)
	}

	// Validated -> Priced: promotion, points, delivery fee, in sequence.
	p, err := a.price(ctx, agg, cust, req)
	if err != nil {
		return nil, a.reject(ctx, StateValidated, err)
	}

	// Priced -> Committed.
	o, err := a.commit(ctx, cust, req, p)
	if err != nil {
		return nil, a.reject(ctx, StatePriced, err)
	}

	if a.metrics.Committed != nil {
		a.metrics.Committed.Add(ctx, 1)
	}

	// Post-commit bookkeeping never affects the customer-visible result.
	a.accrue(ctx, o, cust.LoyaltyBalance)

	return o, nil
}

func (a *Assembler) validate(ctx context.Context, lines []cart.Line) (*cart.Aggregation, error) {
	if len(lines) == 0 {
		return nil, cart.ErrEmptyCart
	}

	fetched, err := a.products.GetByIDs(ctx, cart.ProductIDs(lines))
	if err != nil {
		return nil, errors.Wrap(err, "fetch products")
	}
	catalog := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		catalog[p.ID] = p
	}

	return cart.Aggregate(lines, catalog)
}

func (a *Assembler) price(ctx context.Context, agg *cart.Aggregation, cust *customer.Customer, req CheckoutRequest) (*pricing, error) {
	p := &pricing{
		agg:            agg,
		promoDiscount:  decimal.Zero,
		pointsDiscount: decimal.Zero,
	}

	if req.CouponCode != "" {
		applied, err := a.promotions.Apply(ctx, req.CouponCode, agg.Subtotal)
		if err != nil {
			return nil, err
		}
		p.applied = applied
		p.promoDiscount = applied.Discount
	}

	remaining := agg.Subtotal.Sub(p.promoDiscount)
	pointsDiscount, err := loyalty.RedemptionDiscount(req.PointsRequested, cust.LoyaltyBalance, remaining)
	if err != nil {
		return nil, err
	}
	p.pointsDiscount = pointsDiscount

	p.netSubtotal = agg.Subtotal.Sub(p.promoDiscount).Sub(p.pointsDiscount)
	if p.netSubtotal.IsNegative() {
		p.netSubtotal = decimal.Zero
	}

	cfg, err := a.feeTable.Current(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load delivery config")
	}
	quote, err := a.calculator.Quote(req.DeliveryKind, req.Coordinates, cfg, p.netSubtotal)
	if err != nil {
		return nil, err
	}
	p.quote = quote

	p.total = p.netSubtotal.Add(quote.Fee)
	p.pointsEarned = loyalty.Earned(p.netSubtotal)

	return p, nil
}

// commit reserves the promotion use, persists the order with retries, and
// releases the reservation if persistence ultimately fails. The reservation
// and the insert are two separate writes; only the insert blocks the
// customer-visible outcome.
func (a *Assembler) commit(ctx context.Context, cust *customer.Customer, req CheckoutRequest, p *pricing) (*Order, error) {
	if p.applied != nil {
		if err := a.promotions.Reserve(ctx, p.applied); err != nil {
			return nil, err
		}
	}

	o := a.assemble(ctx, cust, req, p)

	insert := func() error {
		return a.orders.Create(ctx, o)
	}
	if err := backoff.Retry(insert, backoff.WithContext(a.newBackOff(), ctx)); err != nil {
		if p.applied != nil {
			if relErr := a.promotions.Release(ctx, p.applied); relErr != nil {
				zctx.From(ctx).Error("side effect failed: release promotion use",
					zap.String("promotion_code", p.applied.Promotion.Code),
					zap.Error(relErr),
				)
				a.countSideEffectFailure(ctx)
			}
		}
		return nil, errors.Wrap(ErrStoreUnavailable, err.Error())
	}

	o.State = StateCommitted
	return o, nil
}

func (a *Assembler) assemble(ctx context.Context, cust *customer.Customer, req CheckoutRequest, p *pricing) *Order {
	lines := make([]LineSnapshot, len(p.agg.Lines))
	for i, l := range p.agg.Lines {
		lines[i] = LineSnapshot{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Removed:     l.Removed,
			Extras:      l.Extras,
			Note:        l.Note,
			LineTotal:   l.LineTotal,
		}
	}

	o := &Order{
		ID:                uuid.New().String(),
		State:             StatePriced,
		CustomerID:        cust.ID,
		CustomerEmail:     cust.Email,
		CustomerName:      cust.Name,
		DeliveryKind:      req.DeliveryKind,
		Lines:             lines,
		Subtotal:          p.agg.Subtotal,
		PromotionDiscount: p.promoDiscount,
		PointsDiscount:    p.pointsDiscount,
		DeliveryFee:       p.quote.Fee,
		Total:             p.total,
		PointsRedeemed:    req.PointsRequested,
		PointsEarned:      p.pointsEarned,
		CreatedAt:         time.Now().UTC(),
	}
	if p.applied != nil {
		o.PromotionCode = p.applied.Promotion.Code
	}
	if req.DeliveryKind == delivery.KindDelivery && req.Coordinates != nil {
		o.DistanceKm = p.quote.DistanceKm
		o.Address = a.geocoder.ReverseGeocode(ctx, req.Coordinates.Lat, req.Coordinates.Lng)
	}
	return o
}

// accrue appends the loyalty ledger entry for a committed order. Failures
// are logged for manual reconciliation, never surfaced: the order itself
// succeeded.
func (a *Assembler) accrue(ctx context.Context, o *Order, balance int) {
	if o.PointsEarned == 0 && o.PointsRedeemed == 0 {
		return
	}
	if _, err := a.ledger.RecordAccrual(ctx, o.CustomerID, o.ID, o.PointsEarned, o.PointsRedeemed, balance); err != nil {
		zctx.From(ctx).Error("side effect failed: loyalty accrual",
			zap.String("order_id", o.ID),
			zap.Int("points_earned", o.PointsEarned),
			zap.Int("points_redeemed", o.PointsRedeemed),
			zap.Error(err),
		)
		a.countSideEffectFailure(ctx)
	}
}

func (a *Assembler) countSideEffectFailure(ctx context.Context) {
	if a.metrics.SideEffectFailures != nil {
		a.metrics.SideEffectFailures.Add(ctx, 1)
	}
}

// reject terminates the state machine. Nothing has been persisted for the
// order at any rejection point.
func (a *Assembler) reject(ctx context.Context, from State, err error) error {
	zctx.From(ctx).Info("checkout rejected",
		zap.String("state", string(from)),
		zap.Error(err),
	)
	return err
}
