package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lazzat-eats/order-engine/internal/domain/loyalty"
)

const (
	appendLedgerEntrySQL = `INSERT INTO loyalty_ledger (id, customer_id, delta, reason, balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	applyLedgerDeltaSQL = `UPDATE customers SET loyalty_balance = loyalty_balance + $2
		WHERE id = $1`
)

var _ loyalty.Repository = (*LoyaltyRepository)(nil)

// LoyaltyRepository implements loyalty.Repository backed by PostgreSQL.
type LoyaltyRepository struct {
	pool *pgxpool.Pool
}

// NewLoyaltyRepository returns a LoyaltyRepository that uses the given pool.
func NewLoyaltyRepository(pool *pgxpool.Pool) *LoyaltyRepository {
	return &LoyaltyRepository{pool: pool}
}

// Append inserts the ledger entry and applies its delta to the customer's
// balance in one transaction. The ledger stays append-only; the balance
// column is a running materialization of it.
func (r *LoyaltyRepository) Append(ctx context.Context, e *loyalty.Entry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning ledger transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, appendLedgerEntrySQL,
		e.ID, e.CustomerID, e.Delta, e.Reason, e.Balance, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("appending ledger entry %q: %w", e.ID, err)
	}

	if _, err := tx.Exec(ctx, applyLedgerDeltaSQL, e.CustomerID, e.Delta); err != nil {
		return fmt.Errorf("applying ledger delta for customer %q: %w", e.CustomerID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing ledger entry %q: %w", e.ID, err)
	}
	return nil
}
