package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lazzat-eats/order-engine/internal/domain/customer"
)

const getCustomerByIDSQL = `SELECT id, email, name, loyalty_balance
	FROM customers WHERE id = $1`

var _ customer.Provider = (*CustomerRepository)(nil)

// CustomerRepository resolves checkout identities from PostgreSQL. It stands
// in for the external session collaborator: the engine only ever reads from
// it.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// CurrentCustomer returns the identity snapshot for the given customer ID.
func (r *CustomerRepository) CurrentCustomer(ctx context.Context, id string) (*customer.Customer, error) {
	var c customer.Customer
	err := r.pool.QueryRow(ctx, getCustomerByIDSQL, id).Scan(
		&c.ID, &c.Email, &c.Name, &c.LoyaltyBalance,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("finding customer %q: %w", id, err)
	}
	return &c, nil
}
