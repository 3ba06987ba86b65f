package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no customer matches the session identity.
var ErrNotFound = errors.New("customer not found")

// Customer is the identity snapshot supplied by the session collaborator:
// contact details for the order record plus the current loyalty balance.
type Customer struct {
	ID             string
	Email          string
	Name           string
	LoyaltyBalance int
}

// Provider resolves the authenticated customer for a checkout. Read-only
// from the engine's perspective; balances change only through the loyalty
// ledger.
type Provider interface {
	CurrentCustomer(ctx context.Context, id string) (*Customer, error)
}
