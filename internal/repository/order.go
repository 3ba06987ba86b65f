package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lazzat-eats/order-engine/internal/domain/order"
)

const createOrderSQL = `INSERT INTO orders (
		id, customer_id, customer_email, customer_name,
		delivery_kind, address, distance_km, lines,
		subtotal, promotion_discount, points_discount, delivery_fee, total,
		points_redeemed, points_earned, promotion_code, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a committed order. The frozen line snapshots are
// serialized to JSON for the JSONB column; the insert is a single statement,
// so a failure leaves nothing partially visible.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, o.CustomerEmail, o.CustomerName,
		string(o.DeliveryKind), o.Address, o.DistanceKm, linesJSON,
		o.Subtotal, o.PromotionDiscount, o.PointsDiscount, o.DeliveryFee, o.Total,
		o.PointsRedeemed, o.PointsEarned, o.PromotionCode, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}
