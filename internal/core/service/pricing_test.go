package service

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

func TestValidateQuantity_Example(t *testing.T) {
	engine := NewEngine(testCatalog(t))

	res := engine.ValidateQuantity("1", 4)
	assert.ErrorIs(t, res.Err, ErrOverOrderLimit)
	assert.Equal(t, "Limited to 3 per order.", res.Message)

	res = engine.ValidateQuantity("1", 6)
	assert.ErrorIs(t, res.Err, ErrOutOfStock)
	assert.Equal(t, "Only 5 available for this product.", res.Message)

	res = engine.ValidateQuantity("1", 2)
	assert.True(t, res.OK())
	assert.Empty(t, res.Message)
}

func TestValidateQuantity_SucceedsWithinMinOfStockAndLimit(t *testing.T) {
	records := []domain.Inventory{
		{ProductID: "a", Quantity: 5, LimitPerOrder: 3},
		{ProductID: "b", Quantity: 2, LimitPerOrder: 6},
		{ProductID: "c", Quantity: 4, LimitPerOrder: 4},
		{ProductID: "d", Quantity: 0, LimitPerOrder: 1},
	}
	catalog, err := NewCatalog(nil, records, nil)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	engine := NewEngine(catalog)

	for _, inv := range records {
		bound := min(inv.Quantity, inv.LimitPerOrder)
		for q := -1; q <= 8; q++ {
			got := engine.ValidateQuantity(inv.ProductID, q).OK()
			want := q >= 1 && q <= bound
			if got != want {
				t.Errorf("product %s qty %d: ok=%v, want %v", inv.ProductID, q, got, want)
			}
		}
	}
}

func TestValidateQuantity_StockCheckedBeforeLimit(t *testing.T) {
	engine := NewEngine(testCatalog(t))
	// 6 exceeds both stock (5) and limit (3)
	res := engine.ValidateQuantity("1", 6)
	assert.ErrorIs(t, res.Err, ErrOutOfStock)
}

func TestValidateQuantity_MissingLimitMeansNoCap(t *testing.T) {
	engine := NewEngine(testCatalog(t))
	assert.True(t, engine.ValidateQuantity("3", 7).OK())
	assert.ErrorIs(t, engine.ValidateQuantity("3", 8).Err, ErrOutOfStock)
}

func TestValidateQuantity_MissingRecordMeansNothingAvailable(t *testing.T) {
	engine := NewEngine(testCatalog(t))
	res := engine.ValidateQuantity("4", 1)
	assert.ErrorIs(t, res.Err, ErrOutOfStock)
	assert.Equal(t, "Only 0 available for this product.", res.Message)
}

func TestValidateInput_CoercesText(t *testing.T) {
	engine := NewEngine(testCatalog(t))

	assert.True(t, engine.ValidateInput("1", "2").OK())
	assert.True(t, engine.ValidateInput("1", " 3 ").OK())
	assert.True(t, engine.ValidateInput("1", float64(2)).OK())
	assert.True(t, engine.ValidateInput("1", json.Number("1")).OK())
	assert.True(t, engine.ValidateInput("1", json.Number("3.0")).OK(), "same as float64(3)")
	assert.True(t, engine.ValidateInput("1", float64(3)).OK())

	for _, bad := range []any{
		"", "abc", "2.5", 2.5, nil, true,
		float64(1e20), float64(-1e20), math.Inf(1), math.NaN(),
		json.Number("1e20"), json.Number("2.5"),
	} {
		res := engine.ValidateInput("1", bad)
		assert.ErrorIs(t, res.Err, ErrInvalidQuantity, "input %#v", bad)
		assert.Equal(t, invalidQuantityMessage, res.Message)
	}
}

func TestParseQuantity(t *testing.T) {
	n, err := ParseQuantity("-2")
	assert.NoError(t, err)
	assert.Equal(t, -2, n)

	_, err = ParseQuantity("1e3")
	assert.True(t, errors.Is(err, ErrInvalidQuantity))
}

func TestResolveVariantPrice(t *testing.T) {
	engine := NewEngine(testCatalog(t))
	current := price("20.00")

	got, v, ok := engine.ResolveVariantPrice("2", "2-l", current)
	assert.True(t, ok)
	assert.Equal(t, domain.ID("2-l"), v.ID)
	assert.True(t, got.Equal(price("25.00")))

	got, _, ok = engine.ResolveVariantPrice("2", "nope", current)
	assert.False(t, ok)
	assert.True(t, got.Equal(current))

	got, _, ok = engine.ResolveVariantPrice("99", "2-l", current)
	assert.False(t, ok)
	assert.True(t, got.Equal(current))
}

func TestApplyCoupon(t *testing.T) {
	engine := NewEngine(testCatalog(t))

	state, err := engine.ApplyCoupon("SAVE20")
	assert.NoError(t, err)
	assert.Equal(t, 20, state.DiscountPercent)
	assert.Equal(t, "Coupon applied!", state.SuccessMessage)
	assert.Empty(t, state.ErrorMessage)

	state, err = engine.ApplyCoupon("save20")
	assert.ErrorIs(t, err, ErrInvalidCoupon)
	assert.Zero(t, state.DiscountPercent)
	assert.Equal(t, "Invalid coupon", state.ErrorMessage)
	assert.Empty(t, state.SuccessMessage)
}
