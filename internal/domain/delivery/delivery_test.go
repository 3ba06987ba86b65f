package delivery

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tashkentStore = Coordinates{Lat: 41.311081, Lng: 69.240562}

func testFeeConfig() *Config {
	return &Config{
		Tiers: []Tier{
			{UpToKm: 3, Fee: decimal.NewFromInt(1500)},
			{UpToKm: 6, Fee: decimal.NewFromInt(2500)},
			{UpToKm: 10, Fee: decimal.NewFromInt(3500)},
		},
		FreeThreshold: decimal.NewFromInt(15000),
		MaxKm:         10,
	}
}

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name string
		a, b Coordinates
		want float64
	}{
		{
			name: "same point",
			a:    tashkentStore,
			b:    tashkentStore,
			want: 0,
		},
		{
			name: "tashkent to samarkand",
			a:    tashkentStore,
			b:    Coordinates{Lat: 39.654388, Lng: 66.975823},
			want: 265.7,
		},
		{
			name: "symmetric",
			a:    Coordinates{Lat: 39.654388, Lng: 66.975823},
			b:    tashkentStore,
			want: 265.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceKm(tt.a, tt.b), 0.5)
		})
	}
}

// offsetByKm returns a point roughly km kilometers due north of the store.
// One degree of latitude is about 111.19 km at this radius.
func offsetByKm(km float64) *Coordinates {
	return &Coordinates{Lat: tashkentStore.Lat + km/111.19, Lng: tashkentStore.Lng}
}

func TestCalculator_Quote(t *testing.T) {
	calc := NewCalculator(tashkentStore)

	tests := []struct {
		name     string
		kind     Kind
		customer *Coordinates
		net      decimal.Decimal
		wantFee  decimal.Decimal
		wantFree bool
		check    func(t *testing.T, err error)
	}{
		{
			name:     "pickup is always free",
			kind:     KindPickup,
			customer: nil,
			net:      decimal.NewFromInt(100),
			wantFee:  decimal.Zero,
		},
		{
			name:     "first tier",
			kind:     KindDelivery,
			customer: offsetByKm(1.2),
			net:      decimal.NewFromInt(8100),
			wantFee:  decimal.NewFromInt(1500),
		},
		{
			name:     "middle tier at 4.2 km",
			kind:     KindDelivery,
			customer: offsetByKm(4.2),
			net:      decimal.NewFromInt(8100),
			wantFee:  decimal.NewFromInt(2500),
		},
		{
			name:     "tier bound is exclusive",
			kind:     KindDelivery,
			customer: offsetByKm(3.0),
			net:      decimal.NewFromInt(8100),
			wantFee:  decimal.NewFromInt(2500),
		},
		{
			name:     "last tier",
			kind:     KindDelivery,
			customer: offsetByKm(8),
			net:      decimal.NewFromInt(8100),
			wantFee:  decimal.NewFromInt(3500),
		},
		{
			name:     "net just below threshold pays the fee",
			kind:     KindDelivery,
			customer: offsetByKm(4.2),
			net:      decimal.NewFromInt(14999),
			wantFee:  decimal.NewFromInt(2500),
		},
		{
			name:     "net at threshold is free",
			kind:     KindDelivery,
			customer: offsetByKm(4.2),
			net:      decimal.NewFromInt(15000),
			wantFee:  decimal.Zero,
			wantFree: true,
		},
		{
			name:     "net above threshold is free",
			kind:     KindDelivery,
			customer: offsetByKm(4.2),
			net:      decimal.NewFromInt(15001),
			wantFee:  decimal.Zero,
			wantFree: true,
		},
		{
			name:     "missing coordinates",
			kind:     KindDelivery,
			customer: nil,
			net:      decimal.NewFromInt(8100),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMissingCoordinates)
			},
		},
		{
			name:     "beyond serviceable radius",
			kind:     KindDelivery,
			customer: offsetByKm(14),
			net:      decimal.NewFromInt(8100),
			check: func(t *testing.T, err error) {
				var outErr *OutOfServiceAreaError
				require.ErrorAs(t, err, &outErr)
				assert.InDelta(t, 14, outErr.DistanceKm, 0.1)
				assert.Equal(t, float64(10), outErr.MaxKm)
			},
		},
		{
			name:     "free threshold does not rescue out of area",
			kind:     KindDelivery,
			customer: offsetByKm(14),
			net:      decimal.NewFromInt(100000),
			check: func(t *testing.T, err error) {
				var outErr *OutOfServiceAreaError
				assert.ErrorAs(t, err, &outErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := calc.Quote(tt.kind, tt.customer, testFeeConfig(), tt.net)
			if tt.check != nil {
				require.Error(t, err)
				tt.check(t, err)
				return
			}

			require.NoError(t, err)
			assert.True(t, quote.Fee.Equal(tt.wantFee), "want fee %s, got %s", tt.wantFee, quote.Fee)
			assert.Equal(t, tt.wantFree, quote.Free)
		})
	}
}

func TestCalculator_QuotePickupIgnoresDistance(t *testing.T) {
	calc := NewCalculator(tashkentStore)

	// Even a customer far outside the radius can pick up.
	quote, err := calc.Quote(KindPickup, offsetByKm(50), testFeeConfig(), decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, quote.Fee.IsZero())
	assert.Zero(t, quote.DistanceKm)
}

func TestTierFee_FallbackCeiling(t *testing.T) {
	tiers := []Tier{
		{UpToKm: 3, Fee: decimal.NewFromInt(1500)},
		{UpToKm: 6, Fee: decimal.NewFromInt(2500)},
	}

	// Distance past the last bound but still serviceable uses the last fee.
	got := tierFee(tiers, 7.5)
	assert.True(t, got.Equal(decimal.NewFromInt(2500)))
}

func TestTierFee_EmptyTable(t *testing.T) {
	assert.True(t, tierFee(nil, 2).IsZero())
}
