package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lazzat-eats/order-engine/internal/domain/delivery"
)

const (
	getDeliveryConfigSQL = `SELECT free_threshold, max_km FROM delivery_config WHERE id = 1`

	listDeliveryTiersSQL = `SELECT up_to_km, fee FROM delivery_tiers ORDER BY up_to_km`
)

var _ delivery.ConfigSource = (*DeliveryConfigRepository)(nil)

// DeliveryConfigRepository loads the tiered fee table from PostgreSQL. The
// config is read fresh per checkout and treated as immutable for that
// checkout's duration.
type DeliveryConfigRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryConfigRepository returns a DeliveryConfigRepository that uses
// the given pool.
func NewDeliveryConfigRepository(pool *pgxpool.Pool) *DeliveryConfigRepository {
	return &DeliveryConfigRepository{pool: pool}
}

// Current returns the delivery fee configuration in effect.
func (r *DeliveryConfigRepository) Current(ctx context.Context) (*delivery.Config, error) {
	var cfg delivery.Config
	err := r.pool.QueryRow(ctx, getDeliveryConfigSQL).Scan(&cfg.FreeThreshold, &cfg.MaxKm)
	if err != nil {
		return nil, fmt.Errorf("loading delivery config: %w", err)
	}

	rows, err := r.pool.Query(ctx, listDeliveryTiersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing delivery tiers: %w", err)
	}
	cfg.Tiers, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (delivery.Tier, error) {
		var t delivery.Tier
		err := row.Scan(&t.UpToKm, &t.Fee)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning delivery tiers: %w", err)
	}

	return &cfg, nil
}
