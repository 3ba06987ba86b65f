package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lazzat-eats/order-engine/internal/domain/promotion"
)

const (
	getPromotionByCodeSQL = `SELECT id, code, kind, value, min_purchase, max_discount,
		max_uses, uses, valid_from, valid_until, description
		FROM promotions WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	// Conditional increment: succeeds only while the usage count equals the
	// value the caller last read and the limit is not yet reached. Concurrent
	// checkouts race on this row; losers re-read and retry.
	reservePromotionUseSQL = `UPDATE promotions SET uses = uses + 1
		WHERE id = $1 AND uses = $2 AND (max_uses = 0 OR uses < max_uses)`

	releasePromotionUseSQL = `UPDATE promotions SET uses = uses - 1
		WHERE id = $1 AND uses > 0`
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// FindByCode looks up an active promotion by its code (case-insensitive).
// Returns promotion.ErrNotFound when no matching active promotion exists.
func (r *PromotionRepository) FindByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, getPromotionByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promotion by code %q: %w", code, err)
	}

	promo, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrNotFound
		}
		return nil, fmt.Errorf("finding promotion by code %q: %w", code, err)
	}
	return &promo, nil
}

// ReserveUse attempts the optimistic conditional increment of the usage
// counter. It reports false without error when another checkout won the race.
func (r *PromotionRepository) ReserveUse(ctx context.Context, id string, expectedUses int) (bool, error) {
	tag, err := r.pool.Exec(ctx, reservePromotionUseSQL, id, expectedUses)
	if err != nil {
		return false, fmt.Errorf("reserving use for promotion %q: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseUse returns a previously reserved use after a failed commit.
func (r *PromotionRepository) ReleaseUse(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, releasePromotionUseSQL, id); err != nil {
		return fmt.Errorf("releasing use for promotion %q: %w", id, err)
	}
	return nil
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var (
		p    promotion.Promotion
		kind string
	)
	err := row.Scan(
		&p.ID, &p.Code, &kind, &p.Value, &p.MinPurchase, &p.MaxDiscount,
		&p.MaxUses, &p.Uses, &p.ValidFrom, &p.ValidUntil, &p.Description,
	)
	p.Kind = promotion.Kind(kind)
	return p, err
}
