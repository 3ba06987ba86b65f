package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazzat-eats/order-engine/internal/domain/product"
)

func testCatalog() map[string]product.Product {
	return map[string]product.Product{
		"plov": {ID: "plov", Name: "Chaykhana plov", Price: decimal.NewFromInt(8000), Available: true, InStock: true},
		"tea":  {ID: "tea", Name: "Green tea", Price: decimal.NewFromInt(500), Available: true, InStock: true},
		"soup": {ID: "soup", Name: "Lagman soup", Price: decimal.NewFromInt(6000), Available: false, InStock: true},
		"nori": {ID: "nori", Name: "Nori rolls", Price: decimal.NewFromInt(12000), Available: true, InStock: false},
	}
}

func TestAggregate_Subtotal(t *testing.T) {
	agg, err := Aggregate([]Line{
		{ProductID: "plov", Quantity: 1},
		{ProductID: "tea", Quantity: 2},
	}, testCatalog())
	require.NoError(t, err)

	require.Len(t, agg.Lines, 2)
	assert.True(t, agg.Subtotal.Equal(decimal.NewFromInt(9000)),
		"want 9000, got %s", agg.Subtotal)
}

func TestAggregate_MergesIdenticalLines(t *testing.T) {
	agg, err := Aggregate([]Line{
		{ProductID: "plov", Quantity: 1},
		{ProductID: "tea", Quantity: 1},
		{ProductID: "plov", Quantity: 2},
	}, testCatalog())
	require.NoError(t, err)

	require.Len(t, agg.Lines, 2)
	// First occurrence keeps its position.
	assert.Equal(t, "plov", agg.Lines[0].ProductID)
	assert.Equal(t, 3, agg.Lines[0].Quantity)
	assert.Equal(t, "tea", agg.Lines[1].ProductID)
	assert.True(t, agg.Subtotal.Equal(decimal.NewFromInt(24500)))
}

func TestAggregate_CustomizationOrderingIrrelevant(t *testing.T) {
	extraA := Extra{Name: "egg", Price: decimal.NewFromInt(2000)}
	extraB := Extra{Name: "cheese", Price: decimal.NewFromInt(3000)}

	agg, err := Aggregate([]Line{
		{ProductID: "plov", Quantity: 1, Removed: []string{"onion", "carrot"}, Extras: []Extra{extraA, extraB}},
		{ProductID: "plov", Quantity: 1, Removed: []string{"carrot", "onion"}, Extras: []Extra{extraB, extraA}},
	}, testCatalog())
	require.NoError(t, err)

	require.Len(t, agg.Lines, 1)
	assert.Equal(t, 2, agg.Lines[0].Quantity)
	// (8000 + 2000 + 3000) * 2
	assert.True(t, agg.Subtotal.Equal(decimal.NewFromInt(26000)))
}

func TestAggregate_DifferentCustomizationsStaySeparate(t *testing.T) {
	agg, err := Aggregate([]Line{
		{ProductID: "plov", Quantity: 1},
		{ProductID: "plov", Quantity: 1, Note: "extra spicy"},
	}, testCatalog())
	require.NoError(t, err)

	assert.Len(t, agg.Lines, 2)
}

func TestAggregate_RemovedIngredientsDoNotChangePrice(t *testing.T) {
	plain, err := Aggregate([]Line{{ProductID: "plov", Quantity: 1}}, testCatalog())
	require.NoError(t, err)

	removed, err := Aggregate([]Line{{ProductID: "plov", Quantity: 1, Removed: []string{"onion"}}}, testCatalog())
	require.NoError(t, err)

	assert.True(t, plain.Subtotal.Equal(removed.Subtotal))
}

func TestAggregate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		check func(t *testing.T, err error)
	}{
		{
			name:  "empty cart",
			lines: nil,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyCart)
			},
		},
		{
			name:  "zero quantity",
			lines: []Line{{ProductID: "plov", Quantity: 0}},
			check: func(t *testing.T, err error) {
				var e *InvalidQuantityError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "plov", e.ProductID)
			},
		},
		{
			name:  "negative quantity",
			lines: []Line{{ProductID: "plov", Quantity: -1}},
			check: func(t *testing.T, err error) {
				var e *InvalidQuantityError
				assert.ErrorAs(t, err, &e)
			},
		},
		{
			name:  "unknown product",
			lines: []Line{{ProductID: "ghost", Quantity: 1}},
			check: func(t *testing.T, err error) {
				var e *UnknownProductError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "ghost", e.ProductID)
			},
		},
		{
			name:  "unavailable product",
			lines: []Line{{ProductID: "soup", Quantity: 1}},
			check: func(t *testing.T, err error) {
				var e *ProductUnavailableError
				assert.ErrorAs(t, err, &e)
			},
		},
		{
			name:  "out of stock product",
			lines: []Line{{ProductID: "nori", Quantity: 1}},
			check: func(t *testing.T, err error) {
				var e *ProductUnavailableError
				assert.ErrorAs(t, err, &e)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.lines, testCatalog())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestAggregate_UnavailableErrorNamesProduct(t *testing.T) {
	_, err := Aggregate([]Line{{ProductID: "soup", Quantity: 1}}, testCatalog())
	require.Error(t, err)

	var unavailable *ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Lagman soup", unavailable.ProductName)
}

func TestProductIDs(t *testing.T) {
	ids := ProductIDs([]Line{
		{ProductID: "plov"},
		{ProductID: "tea"},
		{ProductID: "plov"},
	})
	assert.Equal(t, []string{"plov", "tea"}, ids)
}
