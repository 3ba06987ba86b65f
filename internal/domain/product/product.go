package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a menu item available for ordering.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Category  string
	Available bool
	InStock   bool
}

// Orderable reports whether the product can be placed in an order right now.
func (p Product) Orderable() bool {
	return p.Available && p.InStock
}

// Repository defines read operations for the menu catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
