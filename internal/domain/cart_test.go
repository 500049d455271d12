package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTotalPrice_Empty(t *testing.T) {
	total := TotalPrice(nil)
	assert.True(t, total.Equal(decimal.Zero))
	assert.Equal(t, "0", total.String())
}

func TestTotalPrice_SumsSubtotals(t *testing.T) {
	lines := []PricedLine{
		{Line: CartLine{Quantity: 2}, Analysis: Analysis{Price: decimal.RequireFromString("1500.50")}},
		{Line: CartLine{Quantity: 1}, Analysis: Analysis{Price: decimal.RequireFromString("999.99")}},
	}
	assert.Equal(t, "4000.99", TotalPrice(lines).StringFixed(2))
}

func TestTotalPrice_Property(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("total equals sum of price times quantity", prop.ForAll(
		func(quantities []int) bool {
			lines := make([]PricedLine, len(quantities))
			var cents int64
			for i, q := range quantities {
				price := int64(q*37+i) + 100
				lines[i] = PricedLine{
					Line:     CartLine{Quantity: q},
					Analysis: Analysis{Price: decimal.New(price, -2)},
				}
				cents += price * int64(q)
			}
			return TotalPrice(lines).Equal(decimal.New(cents, -2))
		},
		gen.SliceOf(gen.IntRange(1, 50)),
	))

	properties.TestingRun(t)
}

func TestCart_IsEmpty(t *testing.T) {
	var nilCart *Cart
	assert.True(t, nilCart.IsEmpty())
	assert.True(t, (&Cart{}).IsEmpty())
	assert.False(t, (&Cart{Lines: []CartLine{{ID: 1}}}).IsEmpty())
}
