// Package delivery turns coordinates and a tiered fee table into a delivery
// quote: a distance plus a fee, free delivery, or an out-of-service failure.
package delivery

import (
	"context"
	"fmt"
	"math"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind distinguishes delivery orders from pickup orders.
type Kind string

const (
	KindDelivery Kind = "delivery"
	KindPickup   Kind = "pickup"
)

// ErrMissingCoordinates is returned when a delivery order carries no
// customer coordinates.
var ErrMissingCoordinates = errors.New("delivery coordinates are required")

// OutOfServiceAreaError indicates the customer is beyond the serviceable
// radius. Pickup remains available.
type OutOfServiceAreaError struct {
	DistanceKm float64
	MaxKm      float64
}

func (e *OutOfServiceAreaError) Error() string {
	return fmt.Sprintf("address is %.2f km away, outside our %.0f km delivery area; pickup is available", e.DistanceKm, e.MaxKm)
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Tier maps a distance range to a flat fee. UpToKm is exclusive: a tier
// covers distances strictly below it.
type Tier struct {
	UpToKm float64
	Fee    decimal.Decimal
}

// Config is the fee table in effect for one checkout. Tiers are ordered by
// ascending UpToKm; the first tier whose bound exceeds the distance wins.
type Config struct {
	Tiers []Tier
	// FreeThreshold waives the fee for net subtotals at or above it.
	FreeThreshold decimal.Decimal
	// MaxKm is the maximum serviceable distance.
	MaxKm float64
}

// ConfigSource supplies the fee table, fetched fresh per checkout.
type ConfigSource interface {
	Current(ctx context.Context) (*Config, error)
}

// Quote is the computed delivery outcome for an order.
type Quote struct {
	Fee        decimal.Decimal
	DistanceKm float64
	Free       bool
}

// DistanceKm returns the great-circle (haversine) distance between two
// points in kilometers, rounded to two decimals.
func DistanceKm(a, b Coordinates) float64 {
	const earthRadiusKm = 6371

	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return math.Round(earthRadiusKm*c*100) / 100
}

// Calculator computes delivery quotes relative to the store location.
type Calculator struct {
	store Coordinates
}

// NewCalculator creates a Calculator for a store at the given coordinates.
func NewCalculator(store Coordinates) *Calculator {
	return &Calculator{store: store}
}

// Store returns the store coordinates the calculator measures from.
func (c *Calculator) Store() Coordinates {
	return c.store
}

// Quote computes the delivery fee for an order. Pickup orders always get a
// zero fee and zero distance. For delivery: the distance must be within the
// serviceable radius; a net subtotal at or above the free threshold waives
// the fee; otherwise the first matching tier applies, with the last tier's
// fee as a ceiling for distances past the final bound but still serviceable.
func (c *Calculator) Quote(kind Kind, customer *Coordinates, cfg *Config, netSubtotal decimal.Decimal) (*Quote, error) {
	if kind == KindPickup {
		return &Quote{Fee: decimal.Zero}, nil
	}
	if customer == nil {
		return nil, ErrMissingCoordinates
	}

	distance := DistanceKm(c.store, *customer)
	if distance > cfg.MaxKm {
		return nil, &OutOfServiceAreaError{DistanceKm: distance, MaxKm: cfg.MaxKm}
	}

	if netSubtotal.GreaterThanOrEqual(cfg.FreeThreshold) {
		return &Quote{Fee: decimal.Zero, DistanceKm: distance, Free: true}, nil
	}

	return &Quote{Fee: tierFee(cfg.Tiers, distance), DistanceKm: distance}, nil
}

// tierFee scans the ordered tiers and returns the fee of the first tier
// whose upper bound exceeds the distance. Past the last bound, the last
// tier's fee acts as a fallback ceiling.
func tierFee(tiers []Tier, distanceKm float64) decimal.Decimal {
	for _, t := range tiers {
		if distanceKm < t.UpToKm {
			return t.Fee
		}
	}
	if len(tiers) > 0 {
		return tiers[len(tiers)-1].Fee
	}
	return decimal.Zero
}
