package pricing

import (
	"testing"

	"order-composer/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitPrice(t *testing.T) {
	p := models.Product{BasePrice: decimal.NewFromInt(45)}
	assert.Equal(t, "45.00", UnitPrice(p).StringFixed(2))

	offer := decimal.RequireFromString("39.5")
	p.OfferPrice = &offer
	assert.Equal(t, "39.50", UnitPrice(p).StringFixed(2))
}

func TestNewLine(t *testing.T) {
	flavor := &models.Flavor{ID: "mango", Name: "Mango"}
	line := NewLine(tieredProduct(), flavor, 5)

	assert.Equal(t, "p-1", line.ProductID)
	assert.Equal(t, "Blue Dream", line.ProductName)
	assert.Equal(t, "mango", line.FlavorID)
	assert.Equal(t, "Mango", line.FlavorName)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, "225.00", line.Subtotal.StringFixed(2))
	require.NotNil(t, line.AppliedDiscount)
	assert.Equal(t, "22.50", line.DiscountAmount.StringFixed(2))
	assert.Equal(t, "202.50", line.FinalPrice.StringFixed(2))
}

func TestRecomputeLineDropsDiscountBelowThreshold(t *testing.T) {
	p := tieredProduct()
	line := NewLine(p, nil, 5)
	require.NotNil(t, line.AppliedDiscount)

	line.Quantity = 4
	line = RecomputeLine(line, p)

	assert.Nil(t, line.AppliedDiscount)
	assert.Equal(t, "180.00", line.Subtotal.StringFixed(2))
	assert.True(t, line.DiscountAmount.IsZero())
	assert.Equal(t, "180.00", line.FinalPrice.StringFixed(2))
}

func TestRecomputeLineIsIdempotent(t *testing.T) {
	p := tieredProduct()
	line := NewLine(p, nil, 12)
	again := RecomputeLine(line, p)

	assert.True(t, line.Subtotal.Equal(again.Subtotal))
	assert.True(t, line.DiscountAmount.Equal(again.DiscountAmount))
	assert.True(t, line.FinalPrice.Equal(again.FinalPrice))
	assert.Equal(t, line.AppliedDiscount, again.AppliedDiscount)
}

func TestTotalsUsesFinalPrice(t *testing.T) {
	plain := models.Product{ID: "p-9", BasePrice: decimal.RequireFromString("12.25"), OnHand: 10}
	lines := []models.OrderLine{
		NewLine(tieredProduct(), nil, 5),
		NewLine(plain, nil, 2),
	}

	subtotal, grand := Totals(lines, decimal.NewFromInt(15))

	// 202.50 + 24.50, not 225.00 + 24.50
	assert.Equal(t, "227.00", subtotal.StringFixed(2))
	assert.Equal(t, "242.00", grand.StringFixed(2))
}

func TestTotalsEmpty(t *testing.T) {
	subtotal, grand := Totals(nil, decimal.RequireFromString("7.5"))
	assert.True(t, subtotal.IsZero())
	assert.Equal(t, "7.50", grand.StringFixed(2))
}
