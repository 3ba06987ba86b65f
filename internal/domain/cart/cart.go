package cart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lazzat-eats/order-engine/internal/domain/product"
)

// ErrEmptyCart is returned when a checkout is attempted with no lines.
var ErrEmptyCart = fmt.Errorf("cart must contain at least one line")

// InvalidQuantityError indicates a line with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for product %s", e.ProductID)
}

// UnknownProductError indicates a line referencing a product that is not in
// the catalog.
type UnknownProductError struct {
	ProductID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// ProductUnavailableError indicates a line whose product is flagged
// unavailable or out of stock.
type ProductUnavailableError struct {
	ProductName string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("%s is currently unavailable", e.ProductName)
}

// Extra is an added ingredient with its own price.
type Extra struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Line is a single mutable cart entry as submitted by the client: a product
// reference plus customizations. Prices on the line itself are never trusted
// for the base product; the catalog price is re-read at checkout.
type Line struct {
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Removed   []string `json:"removed,omitempty"`
	Extras    []Extra  `json:"extras,omitempty"`
	Note      string   `json:"note,omitempty"`
}

// customizationKey builds the canonical merge key for a line: product ID plus
// sorted removed ingredients, sorted extras, and the note. Two lines with the
// same key are the same item regardless of customization ordering.
func (l Line) customizationKey() string {
	removed := append([]string(nil), l.Removed...)
	sort.Strings(removed)

	extras := make([]string, len(l.Extras))
	for i, e := range l.Extras {
		extras[i] = e.Name + "@" + e.Price.String()
	}
	sort.Strings(extras)

	var b strings.Builder
	b.WriteString(l.ProductID)
	b.WriteByte('|')
	b.WriteString(strings.Join(removed, ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(extras, ","))
	b.WriteByte('|')
	b.WriteString(l.Note)
	return b.String()
}

// extrasTotal returns the per-unit price of all added extras.
func (l Line) extrasTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range l.Extras {
		sum = sum.Add(e.Price)
	}
	return sum
}

// PricedLine is a normalized cart line with catalog prices applied.
type PricedLine struct {
	Line
	ProductName string
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Aggregation is the result of reducing a cart: merged lines and their
// subtotal.
type Aggregation struct {
	Lines    []PricedLine
	Subtotal decimal.Decimal
}

// Aggregate normalizes the given lines against the catalog and reduces them
// to a subtotal. Lines with the same product and semantically identical
// customizations are merged with summed quantities; the first occurrence
// keeps its position. Removed ingredients are informational and do not affect
// price. Per-line total is (unitPrice + sum of extras) * quantity.
func Aggregate(lines []Line, products map[string]product.Product) (*Aggregation, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	merged := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: l.ProductID}
		}
		key := l.customizationKey()
		if i, ok := index[key]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[key] = len(merged)
		merged = append(merged, l)
	}

	priced := make([]PricedLine, len(merged))
	subtotal := decimal.Zero
	for i, l := range merged {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, &UnknownProductError{ProductID: l.ProductID}
		}
		if !p.Orderable() {
			return nil, &ProductUnavailableError{ProductName: p.Name}
		}

		qty := decimal.NewFromInt(int64(l.Quantity))
		total := p.Price.Add(l.extrasTotal()).Mul(qty)

		priced[i] = PricedLine{
			Line:        l,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			LineTotal:   total,
		}
		subtotal = subtotal.Add(total)
	}

	return &Aggregation{Lines: priced, Subtotal: subtotal}, nil
}

// ProductIDs returns the distinct product IDs referenced by the lines, in
// first-seen order.
func ProductIDs(lines []Line) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}
